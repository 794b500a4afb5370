package dicom

import (
	"testing"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceBuilder_Basic(t *testing.T) {
	builder := NewSequenceBuilder(tag.ReferencedSOPSequence)

	builder.AddItem(
		WithElement(tag.ReferencedSOPClassUID, CTImageStorageUID),
		WithElement(tag.ReferencedSOPInstanceUID, "1.2.3.4.5"),
	).AddItem(
		WithElement(tag.ReferencedSOPClassUID, CTImageStorageUID),
		WithElement(tag.ReferencedSOPInstanceUID, "1.2.3.4.6"),
	)

	assert.Equal(t, 2, builder.Count())
	assert.False(t, builder.HasErrors())

	opt, err := builder.Build()
	require.NoError(t, err)

	ds, err := NewDataset(
		WithElement(tag.SeriesInstanceUID, "1.2.3.4"),
		opt,
	)
	require.NoError(t, err)

	items := GetSequenceItems(ds, tag.ReferencedSOPSequence)
	require.Len(t, items, 2)
	assert.Equal(t, "1.2.3.4.5", items[0].GetString(tag.ReferencedSOPInstanceUID))
	assert.Equal(t, "1.2.3.4.6", items[1].GetString(tag.ReferencedSOPInstanceUID))
}

func TestSequenceBuilder_EvidenceHierarchy(t *testing.T) {
	series := NewSequenceBuilder(tag.ReferencedSeriesSequence)
	for _, uid := range []string{"1.2.3.1", "1.2.3.2", "1.2.3.3"} {
		sops, err := NewSequenceBuilder(tag.ReferencedSOPSequence).
			AddItem(WithElement(tag.ReferencedSOPInstanceUID, uid+".1")).
			Build()
		require.NoError(t, err)
		series.AddItem(WithElement(tag.SeriesInstanceUID, uid), sops)
	}
	assert.Equal(t, 3, series.Count())

	ds, err := series.BuildDataset()
	require.NoError(t, err)

	items := GetSequenceItems(ds, tag.ReferencedSeriesSequence)
	require.Len(t, items, 3)
	sops := items[2].Sequence(tag.ReferencedSOPSequence)
	require.Len(t, sops, 1)
	assert.Equal(t, "1.2.3.3.1", sops[0].GetString(tag.ReferencedSOPInstanceUID))
}

func TestSequenceBuilder_AddDataset(t *testing.T) {
	builder := NewSequenceBuilder(tag.ContentSequence)

	ds1, _ := NewDataset(WithElement(tag.ValueType, "TEXT"))
	ds2, _ := NewDataset(WithElement(tag.ValueType, "CONTAINER"))
	builder.AddDataset(ds1).AddDataset(ds2)

	assert.Equal(t, 2, builder.Count())
	assert.False(t, builder.HasErrors())

	result, err := builder.BuildDataset()
	require.NoError(t, err)
	items := GetSequenceItems(result, tag.ContentSequence)
	require.Len(t, items, 2)
	assert.Equal(t, "CONTAINER", items[1].GetString(tag.ValueType))
}

func TestSequenceBuilder_Empty(t *testing.T) {
	builder := NewSequenceBuilder(tag.ReferencedRequestSequence)
	ds, err := builder.BuildDataset()
	require.NoError(t, err)

	elem, ok := ds.Get(tag.ReferencedRequestSequence)
	require.True(t, ok)
	assert.Equal(t, "SQ", elem.VR)
	assert.Empty(t, ds.Sequence(tag.ReferencedRequestSequence))
}

func TestSequenceBuilder_OutOfBounds(t *testing.T) {
	builder := NewSequenceBuilder(tag.ReferencedSOPSequence)
	builder.AddItem(WithElement(tag.ReferencedSOPInstanceUID, "1.2.3.1"))

	assert.NotNil(t, builder.GetItem(0))
	assert.Nil(t, builder.GetItem(10))
	assert.Nil(t, builder.GetItem(-1))
	assert.Len(t, builder.GetItems(), 1)
}
