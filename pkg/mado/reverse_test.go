package mado

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/fhir"
	"github.com/jpfielding/mado.go/pkg/kos"
	"github.com/jpfielding/mado.go/pkg/kos/kostest"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/jpfielding/mado.go/pkg/sr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// throughJSON encodes and decodes a bundle
func throughJSON(t *testing.T, b *r4.Bundle) *r4.Bundle {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fhir.Encode(&buf, b))
	out, err := fhir.Decode(&buf)
	require.NoError(t, err)
	return out
}

// throughPart10 writes and reads a dataset in the binary encoding
func throughPart10(t *testing.T, ds *dicom.Dataset) *dicom.Dataset {
	t.Helper()
	var buf bytes.Buffer
	_, err := dicom.Write(&buf, ds)
	require.NoError(t, err)
	out, err := dicom.ReadBuffer(buf.Bytes())
	require.NoError(t, err)
	return out
}

func richManifest() *kos.Manifest {
	man := kostest.Manifest()
	quality := kostest.KeyImage(sr.QualityIssue, kostest.InstanceUID2)
	quality.Add(sr.NewCode(sr.HasConceptMod, sr.DocumentTitleModifier, sr.Code{Value: "111210", Scheme: sr.SchemeDCM, Meaning: "Motion blur"}))
	man.Root.Add(kostest.KeyImage(sr.OfInterest, kostest.InstanceUID1), quality)
	man.Meta.Manufacturer = opt.Empty()
	man.Meta.ReferringPhysicianName = opt.Of("^^^^")
	return man
}

func TestRoundTripIdentities(t *testing.T) {
	ds, err := richManifest().Dataset()
	require.NoError(t, err)
	ds = throughPart10(t, ds)

	first, err := ToBundle(ds)
	require.NoError(t, err)

	back, err := ToDataset(throughJSON(t, first))
	require.NoError(t, err)
	back = throughPart10(t, back)

	second, err := ToBundle(back)
	require.NoError(t, err)
	assert.Equal(t, fullURLs(first), fullURLs(second))
	assert.Equal(t, resourceTypes(first), resourceTypes(second))
}

func TestRoundTripMetadata(t *testing.T) {
	orig := richManifest()
	b := New().ConvertManifest(orig).Bundle
	man, err := New().ToManifest(throughJSON(t, b))
	require.NoError(t, err)

	meta := man.Meta
	assert.Equal(t, orig.Meta.SOPInstanceUID, meta.SOPInstanceUID)
	assert.Equal(t, orig.Meta.SeriesInstanceUID, meta.SeriesInstanceUID)
	assert.Equal(t, orig.Meta.SeriesNumber, meta.SeriesNumber)
	assert.Equal(t, orig.Meta.StudyInstanceUID, meta.StudyInstanceUID)
	assert.Equal(t, orig.Meta.PatientID, meta.PatientID)
	assert.Equal(t, orig.Meta.IssuerOfPatientID, meta.IssuerOfPatientID)
	assert.Equal(t, orig.Meta.TypeOfPatientID, meta.TypeOfPatientID)
	assert.Equal(t, orig.Meta.PatientName, meta.PatientName)
	assert.Equal(t, orig.Meta.StudyID, meta.StudyID)
	assert.Equal(t, orig.Meta.ContentDate, meta.ContentDate)
	assert.Equal(t, orig.Meta.ContentTime, meta.ContentTime)
	assert.Equal(t, orig.Meta.TimezoneOffset, meta.TimezoneOffset)
	assert.Equal(t, orig.Meta.AccessionNumber, meta.AccessionNumber)
	assert.Equal(t, orig.Meta.IssuerOfAccessionNumber, meta.IssuerOfAccessionNumber)
	assert.Equal(t, opt.StateEmpty, meta.Manufacturer.State())
	assert.Equal(t, "^^^^", meta.ReferringPhysicianName.String())
	assert.Equal(t, sr.Manifest, meta.Title)
	require.NotNil(t, meta.TargetRegion)
	assert.Equal(t, kostest.ChestSRT, *meta.TargetRegion)

	series := man.Evidence.Studies[0].Series[0]
	assert.Equal(t, kostest.RetrieveURL, series.RetrieveURL)
	assert.Equal(t, "PACS_AE", series.RetrieveAETitle)
	require.Len(t, series.Instances, 2)
	assert.Equal(t, kostest.CTImageStorage, series.Instances[0].SOPClassUID)
	assert.Equal(t, 512, series.Instances[0].Rows)
	assert.Equal(t, 1, series.Instances[0].NumberOfFrames)
}

func TestReverseContentSkeleton(t *testing.T) {
	b := New().ConvertManifest(richManifest()).Bundle
	man, err := New().ToManifest(b)
	require.NoError(t, err)

	root := man.Root
	require.GreaterOrEqual(t, len(root.Children), 5)
	assert.True(t, root.Children[0].Named(sr.KeyObjectDescription))
	assert.Equal(t, "Manifest for CT Chest", root.Children[0].TextValue.String())

	// study acquisition context sits between the description and the library
	studyUID := root.Children[1]
	assert.True(t, studyUID.Named(sr.StudyInstanceUID))
	assert.Equal(t, sr.HasAcqContext, studyUID.RelationshipType)
	assert.Equal(t, kostest.StudyUID, studyUID.UID.String())
	modality := root.Children[2]
	assert.True(t, modality.Named(sr.Modality))
	assert.Equal(t, sr.HasAcqContext, modality.RelationshipType)
	c, ok := modality.Code()
	require.True(t, ok)
	assert.Equal(t, "CT", c.Value)
	assert.Equal(t, sr.SchemeDCM, c.Scheme)

	assert.True(t, root.Children[3].Named(sr.TargetRegion))
	assert.True(t, root.Children[4].Named(sr.ImageLibrary))

	group := root.Children[4].Children[0]
	assert.True(t, group.Named(sr.ImageLibraryGroup))
	assert.Equal(t, kostest.SeriesUID, group.Child(sr.SeriesInstanceUID).UID.String())
	images := 0
	for _, c := range group.Children {
		if c.ValueType == sr.Image {
			images++
			assert.NotNil(t, c.Child(sr.InstanceNumber))
			assert.NotNil(t, c.Child(sr.NumberOfFrames))
		}
	}
	assert.Equal(t, 2, images)

	quality := root.Find(func(n *sr.Node) bool { return n.Named(sr.QualityIssue) })
	require.NotNil(t, quality)
	assert.Equal(t, kostest.InstanceUID2, quality.References[0].InstanceUID)
	assert.NotNil(t, quality.Child(sr.DocumentTitleModifier))
	assert.NotNil(t, root.Find(func(n *sr.Node) bool { return n.Named(sr.OfInterest) }))
}

func TestRequestsNotCollapsed(t *testing.T) {
	man := kostest.Manifest()
	man.Meta.Requests = []kos.Request{
		{StudyInstanceUID: kostest.StudyUID, AccessionNumber: opt.Of("ACC-1"), IssuerOfAccessionNumber: opt.Of("HOSP")},
		{StudyInstanceUID: kostest.StudyUID, AccessionNumber: opt.Of("ACC-2"), IssuerOfAccessionNumber: opt.Of("2.16.840.1.1")},
	}
	b := New().ConvertManifest(man).Bundle
	study := fhir.Of[*r4.ImagingStudy](b)[0]
	require.Len(t, study.BasedOn, 2)
	assert.Equal(t, "ACC-2", fhir.Val(study.BasedOn[1].Identifier.Value))
	assert.Equal(t, "urn:oid:2.16.840.1.1", fhir.Val(study.BasedOn[1].Identifier.System))

	ds, err := ToDataset(b)
	require.NoError(t, err)
	items := ds.Sequence(tag.ReferencedRequestSequence)
	require.Len(t, items, 2)
	assert.Equal(t, "ACC-1", items[0].GetString(tag.AccessionNumber))
	assert.Equal(t, "ACC-2", items[1].GetString(tag.AccessionNumber))
	issuer := items[1].Sequence(tag.IssuerOfAccessionNumberSequence)
	require.Len(t, issuer, 1)
	assert.Equal(t, "2.16.840.1.1", issuer[0].GetString(tag.UniversalEntityID))
}

func TestRequestsFromForeignBundle(t *testing.T) {
	b := New().ConvertManifest(kostest.Manifest()).Bundle
	study := fhir.Of[*r4.ImagingStudy](b)[0]
	study.BasedOn = []r4.Reference{
		{Type: fhir.Ptr("ServiceRequest"), Identifier: &r4.Identifier{Value: fhir.Ptr("A1"), Assigner: &r4.Reference{Display: fhir.Ptr("RIS")}}},
		{Type: fhir.Ptr("ServiceRequest"), Identifier: &r4.Identifier{Value: fhir.Ptr("A2")}},
	}
	man, err := New().ToManifest(b)
	require.NoError(t, err)
	require.Len(t, man.Meta.Requests, 2)
	assert.Equal(t, "A1", man.Meta.Requests[0].AccessionNumber.String())
	assert.Equal(t, "RIS", man.Meta.Requests[0].IssuerOfAccessionNumber.String())
	assert.Equal(t, "A2", man.Meta.Requests[1].AccessionNumber.String())
	assert.Equal(t, kostest.StudyUID, man.Meta.Requests[1].StudyInstanceUID)
}

func TestDimensionsFallback(t *testing.T) {
	b := New().ConvertManifest(kostest.Manifest()).Bundle
	inst := &fhir.Of[*r4.ImagingStudy](b)[0].Series[0].Instance[0]
	inst.Extension = []r4.Extension{fhir.StringExtension(ExtDimensions, "256x128x4")}

	man, err := New().ToManifest(b)
	require.NoError(t, err)
	ei := man.Evidence.Studies[0].Series[0].Instances[0]
	assert.Equal(t, 256, ei.Rows)
	assert.Equal(t, 128, ei.Columns)
	assert.Equal(t, 4, ei.NumberOfFrames)
}

func TestEvidenceInstanceNumbers(t *testing.T) {
	man := kostest.Manifest()
	man.Root = sr.NewContainer("", sr.Manifest, sr.NewText(sr.Contains, sr.KeyObjectDescription, "no library"))
	man.Evidence.Studies[0].Series[0].Instances[0].InstanceNumber = 7
	man.Evidence.Studies[0].Series[0].Instances[1].InstanceNumber = 8
	b := New().ConvertManifest(man).Bundle

	back, err := New().ToManifest(throughJSON(t, b))
	require.NoError(t, err)
	instances := back.Evidence.Studies[0].Series[0].Instances
	require.Len(t, instances, 2)
	assert.Equal(t, 7, instances[0].InstanceNumber)
	assert.Equal(t, 8, instances[1].InstanceNumber)

	// the rebuilt library agrees with the evidence
	img := back.Root.Find(func(n *sr.Node) bool {
		return n.ValueType == sr.Image && len(n.References) > 0 && n.References[0].InstanceUID == kostest.InstanceUID2
	})
	require.NotNil(t, img)
	require.NotNil(t, img.Child(sr.InstanceNumber))
	assert.Equal(t, "8", img.Child(sr.InstanceNumber).Numeric.Value)
}

func TestReversePreconditions(t *testing.T) {
	valid := func() *r4.Bundle { return New().ConvertManifest(kostest.Manifest()).Bundle }

	tests := []struct {
		name   string
		mutate func(*r4.Bundle) *r4.Bundle
		want   error
	}{
		{"nil bundle", func(*r4.Bundle) *r4.Bundle { return nil }, ErrNotDocumentBundle},
		{"collection", func(b *r4.Bundle) *r4.Bundle { b.Type = fhir.Ptr(r4.BundleTypeCollection); return b }, ErrNotDocumentBundle},
		{"no type", func(b *r4.Bundle) *r4.Bundle { b.Type = nil; return b }, ErrNotDocumentBundle},
		{"empty", func(b *r4.Bundle) *r4.Bundle { b.Entry = nil; return b }, ErrCompositionNotFirst},
		{"composition second", func(b *r4.Bundle) *r4.Bundle {
			b.Entry[0], b.Entry[1] = b.Entry[1], b.Entry[0]
			return b
		}, ErrCompositionNotFirst},
		{"no patient", func(b *r4.Bundle) *r4.Bundle { return without(b, "Patient") }, ErrMissingPatient},
		{"no study", func(b *r4.Bundle) *r4.Bundle { return without(b, "ImagingStudy") }, ErrMissingImagingStudy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToDataset(tt.mutate(valid()))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}

func without(b *r4.Bundle, resourceType string) *r4.Bundle {
	kept := b.Entry[:0]
	for _, e := range b.Entry {
		if e.Resource.GetResourceType() != resourceType {
			kept = append(kept, e)
		}
	}
	b.Entry = kept
	return b
}

func TestBodySiteTable(t *testing.T) {
	sct := ToSCT(kostest.ChestSRT)
	assert.Equal(t, sr.SchemeSCT, sct.Scheme)
	assert.Equal(t, "51185008", sct.Value)
	assert.Equal(t, kostest.ChestSRT, ToSRT(sct))

	unknown := sr.Code{Value: "T-99999", Scheme: sr.SchemeSRT, Meaning: "Somewhere"}
	assert.Equal(t, unknown, ToSCT(unknown))
	local := sr.Code{Value: "X1", Scheme: "99LOCAL", Meaning: "Local site"}
	assert.Equal(t, local, ToSRT(ToSCT(local)))
	assert.Equal(t, local, codeOf(coding(local)))
}

func TestPreservedStates(t *testing.T) {
	for _, v := range []opt.Text{opt.Unset(), opt.Empty(), opt.Of("x")} {
		exts := fhir.Extensions{preserve("u", v)}
		got, found := recovered(exts, "u")
		assert.True(t, found)
		assert.Equal(t, v, got)
	}
	_, found := recovered(nil, "u")
	assert.False(t, found)
	assert.Equal(t, opt.Of("fb"), recoverOr(nil, "u", opt.Of("fb")))
}
