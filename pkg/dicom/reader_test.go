package dicom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInstanceUID = "1.2.826.0.1.3680043.8.498.1"

// contentFixture is a KOS shaped dataset with a two level Content Sequence
func contentFixture(t *testing.T, syntax TransferSyntax) *Dataset {
	t.Helper()
	image, err := NewDataset(
		WithElement(tag.RelationshipType, "CONTAINS"),
		WithElement(tag.ValueType, "IMAGE"),
		WithSequence(tag.ReferencedSOPSequence, mustDataset(t,
			WithElement(tag.ReferencedSOPClassUID, CTImageStorageUID),
			WithElement(tag.ReferencedSOPInstanceUID, "1.2.3.4.5"),
		)),
	)
	require.NoError(t, err)
	text, err := NewDataset(
		WithElement(tag.RelationshipType, "CONTAINS"),
		WithElement(tag.ValueType, "TEXT"),
		WithElement(tag.TextValue, "odd"),
	)
	require.NoError(t, err)

	ds, err := NewDataset(
		WithFileMeta(KeyObjectSelectionStorageUID, testInstanceUID, syntax),
		WithElement(tag.SOPClassUID, KeyObjectSelectionStorageUID),
		WithElement(tag.SOPInstanceUID, testInstanceUID),
		WithElement(tag.PatientName, "Doe^Jane"),
		WithElement(tag.PatientID, opt.Empty()),
		WithElement(tag.StudyID, opt.Unset()),
		WithElement(tag.InstanceNumber, 7),
		WithElement(tag.ValueType, "CONTAINER"),
		WithSequence(tag.ContentSequence, text, image),
		WithSequence(tag.ReferencedRequestSequence),
	)
	require.NoError(t, err)
	return ds
}

func mustDataset(t *testing.T, opts ...Option) *Dataset {
	t.Helper()
	ds, err := NewDataset(opts...)
	require.NoError(t, err)
	return ds
}

func roundTrip(t *testing.T, ds *Dataset) *Dataset {
	t.Helper()
	var buf bytes.Buffer
	n, err := Write(&buf, ds)
	require.NoError(t, err)
	assert.EqualValues(t, buf.Len(), n)
	back, err := Parse(&buf)
	require.NoError(t, err)
	return back
}

func TestRoundTrip(t *testing.T) {
	for _, syntax := range []TransferSyntax{ExplicitVRLittleEndian, ImplicitVRLittleEndian} {
		t.Run(syntax.Name(), func(t *testing.T) {
			back := roundTrip(t, contentFixture(t, syntax))

			assert.True(t, IsKeyObjectSelection(back))
			assert.Equal(t, syntax, GetTransferSyntax(back))
			assert.Equal(t, "Doe^Jane", back.GetString(tag.PatientName))
			assert.Equal(t, opt.Empty(), back.Text(tag.PatientID))
			assert.Equal(t, opt.Unset(), back.Text(tag.StudyID))
			n, ok := back.Int(tag.InstanceNumber)
			require.True(t, ok)
			assert.Equal(t, 7, n)

			elem, ok := back.Get(tag.PatientName)
			require.True(t, ok)
			assert.Equal(t, "PN", elem.VR)

			content := back.Sequence(tag.ContentSequence)
			require.Len(t, content, 2)
			assert.Equal(t, "odd", content[0].GetString(tag.TextValue))
			refs := content[1].Sequence(tag.ReferencedSOPSequence)
			require.Len(t, refs, 1)
			assert.Equal(t, "1.2.3.4.5", refs[0].GetString(tag.ReferencedSOPInstanceUID))

			req, ok := back.Get(tag.ReferencedRequestSequence)
			require.True(t, ok)
			items, ok := req.GetSequence()
			require.True(t, ok)
			assert.Empty(t, items)
		})
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kos.dcm")
	_, err := WriteFile(path, contentFixture(t, ExplicitVRLittleEndian))
	require.NoError(t, err)

	ds, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testInstanceUID, GetSOPInstanceUID(ds))
}

// le appends little endian values
type le struct{ bytes.Buffer }

func (b *le) tag(t Tag) *le {
	binary.Write(b, binary.LittleEndian, t.Group)
	binary.Write(b, binary.LittleEndian, t.Element)
	return b
}

func (b *le) u16(v uint16) *le { binary.Write(b, binary.LittleEndian, v); return b }
func (b *le) u32(v uint32) *le { binary.Write(b, binary.LittleEndian, v); return b }
func (b *le) str(s string) *le { b.WriteString(s); return b }

func header(syntax TransferSyntax) *le {
	b := &le{}
	b.Write(make([]byte, 128))
	b.str("DICM")
	uid := string(syntax)
	if len(uid)%2 != 0 {
		uid += "\x00"
	}
	b.tag(tag.TransferSyntaxUID).str("UI").u16(uint16(len(uid))).str(uid)
	return b
}

func TestUndefinedLengthItems(t *testing.T) {
	b := header(ExplicitVRLittleEndian)
	// SQ with undefined length holding one undefined length item
	b.tag(tag.ContentSequence).str("SQ").u16(0).u32(undefinedLength)
	b.tag(tag.Item).u32(undefinedLength)
	b.tag(tag.ValueType).str("CS").u16(4).str("TEXT")
	b.tag(tag.ItemDelimitationItem).u32(0)
	b.tag(tag.SequenceDelimitationItem).u32(0)
	b.tag(tag.PatientID).str("LO").u16(4).str("P-01")

	ds, err := Parse(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	items := ds.Sequence(tag.ContentSequence)
	require.Len(t, items, 1)
	assert.Equal(t, "TEXT", items[0].GetString(tag.ValueType))
	assert.Equal(t, "P-01", ds.GetString(tag.PatientID))
}

func TestImplicitUndefinedLengthSequence(t *testing.T) {
	b := header(ImplicitVRLittleEndian)
	b.tag(tag.ContentSequence).u32(undefinedLength)
	b.tag(tag.Item).u32(12)
	b.tag(tag.ValueType).u32(4).str("CODE")
	b.tag(tag.SequenceDelimitationItem).u32(0)

	ds, err := Parse(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	elem, ok := ds.Get(tag.ContentSequence)
	require.True(t, ok)
	assert.Equal(t, "SQ", elem.VR)
	items := ds.Sequence(tag.ContentSequence)
	require.Len(t, items, 1)
	assert.Equal(t, "CODE", items[0].GetString(tag.ValueType))
	vt, _ := items[0].Get(tag.ValueType)
	assert.Equal(t, "CS", vt.VR)
}

func TestReadErrors(t *testing.T) {
	_, err := Parse(bytes.NewReader(make([]byte, 64)))
	assert.Error(t, err)

	bad := make([]byte, 132)
	copy(bad[128:], "DICX")
	_, err = Parse(bytes.NewReader(bad))
	assert.ErrorContains(t, err, "DICM")

	b := header("1.2.840.10008.1.2.4.50")
	b.tag(tag.PatientID).str("LO").u16(2).str("P1")
	_, err = Parse(bytes.NewReader(b.Bytes()))
	assert.True(t, errors.Is(err, ErrUnsupportedTransferSyntax))
}

func TestWriteUnsupportedSyntax(t *testing.T) {
	ds := contentFixture(t, "1.2.840.10008.1.2.4.50")
	_, err := Write(&bytes.Buffer{}, ds)
	assert.True(t, errors.Is(err, ErrUnsupportedTransferSyntax))
}
