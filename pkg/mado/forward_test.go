package mado

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/fhir"
	"github.com/jpfielding/mado.go/pkg/kos"
	"github.com/jpfielding/mado.go/pkg/kos/kostest"
	"github.com/jpfielding/mado.go/pkg/logging"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/jpfielding/mado.go/pkg/report"
	"github.com/jpfielding/mado.go/pkg/sr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convert(t *testing.T, man *kos.Manifest, opts ...Option) *Conversion {
	t.Helper()
	ds, err := man.Dataset()
	require.NoError(t, err)
	c, err := New(opts...).Convert(ds)
	require.NoError(t, err)
	return c
}

func resourceTypes(b *r4.Bundle) []string {
	var out []string
	for _, r := range fhir.Resources(b) {
		out = append(out, r.GetResourceType())
	}
	return out
}

func TestBundleOrder(t *testing.T) {
	c := convert(t, kostest.Manifest())
	b := c.Bundle
	assert.Equal(t, r4.BundleTypeDocument, fhir.Val(b.Type))
	assert.Equal(t, []string{"Composition", "Patient", "Device", "Practitioner", "Endpoint", "ImagingStudy"}, resourceTypes(b))
	for _, e := range b.Entry {
		assert.Equal(t, "urn:uuid:"+fhir.Val(e.Resource.GetId()), fhir.Val(e.FullUrl))
	}
}

func TestScenarioRootOnly(t *testing.T) {
	man := kostest.Manifest()
	man.Root = sr.NewContainer("", sr.Manifest)
	c := convert(t, man)

	b := c.Bundle
	require.GreaterOrEqual(t, len(b.Entry), 6)
	assert.Equal(t, "Composition", b.Entry[0].Resource.GetResourceType())
	assert.Empty(t, fhir.Of[*r4.Basic](b))

	studies := fhir.Of[*r4.ImagingStudy](b)
	require.Len(t, studies, 1)
	require.Len(t, studies[0].Series, 1)
	series := studies[0].Series[0]
	assert.Equal(t, "CT", fhir.Val(series.Modality.Code))
	require.Len(t, series.Instance, 2)

	// no library and no evidence numbers: numbered by position, with a warning
	assert.Equal(t, uint32(1), fhir.Val(series.Instance[0].Number))
	assert.Equal(t, uint32(2), fhir.Val(series.Instance[1].Number))
	require.Len(t, c.Notes.ByCode(report.CodeNumbering), 1)
	assert.Equal(t, report.SeverityWarning, c.Notes.ByCode(report.CodeNumbering)[0].Severity)
}

func TestLibraryIsAuthoritative(t *testing.T) {
	man := kostest.Manifest()
	man.Evidence.Studies[0].Series[0].Instances[0].InstanceNumber = 40
	man.Evidence.Studies[0].Series[0].Instances[1].InstanceNumber = 41
	c := convert(t, man)

	study := fhir.Of[*r4.ImagingStudy](c.Bundle)[0]
	series := study.Series[0]
	assert.Equal(t, uint32(1), fhir.Val(series.Instance[0].Number))
	assert.Equal(t, uint32(2), fhir.Val(series.Instance[1].Number))
	require.NotNil(t, series.Number)
	assert.Equal(t, uint32(2), *series.Number)
	assert.Equal(t, "Axial 5mm", fhir.Val(series.Description))
	assert.Equal(t, "Computed Tomography", fhir.Val(series.Modality.Display))
	assert.Empty(t, c.Notes.ByCode(report.CodeNumbering))

	require.NotNil(t, series.BodySite)
	assert.Equal(t, SystemSCT, fhir.Val(series.BodySite.System))
	assert.Equal(t, "51185008", fhir.Val(series.BodySite.Code))

	inst := series.Instance[0]
	assert.Equal(t, "urn:oid:"+kostest.CTImageStorage, fhir.Val(inst.SopClass.Code))
	exts := fhir.Extensions(inst.Extension)
	rows, ok := exts.Integer(ExtRows)
	assert.True(t, ok)
	assert.Equal(t, 512, rows)
	dims, _ := exts.String(ExtDimensions)
	assert.Equal(t, "512x512x1", dims)
}

func TestEvidenceNumbersAsFallback(t *testing.T) {
	man := kostest.Manifest()
	man.Root = sr.NewContainer("", sr.Manifest, sr.NewText(sr.Contains, sr.KeyObjectDescription, "no library"))
	man.Evidence.Studies[0].Series[0].Instances[0].InstanceNumber = 7
	man.Evidence.Studies[0].Series[0].Instances[1].InstanceNumber = 8
	c := convert(t, man)

	series := fhir.Of[*r4.ImagingStudy](c.Bundle)[0].Series[0]
	assert.Equal(t, uint32(7), fhir.Val(series.Instance[0].Number))
	assert.Equal(t, uint32(8), fhir.Val(series.Instance[1].Number))
	assert.Empty(t, c.Notes.ByCode(report.CodeNumbering))
}

func TestComposition(t *testing.T) {
	c := convert(t, kostest.Manifest())
	comp := c.Bundle.Entry[0].Resource.(*r4.Composition)
	assert.Equal(t, r4.CompositionStatusFinal, fhir.Val(comp.Status))
	assert.Equal(t, "urn:oid:"+kostest.ManifestUID, fhir.Val(comp.Identifier.Value))
	assert.Equal(t, "2024-01-02T10:30:00+01:00", fhir.Val(comp.Date))
	assert.Equal(t, "Manifest", fhir.Val(comp.Title))
	dcm, ok := fhir.FindCoding(&comp.Type, SystemDCM)
	require.True(t, ok)
	assert.Equal(t, "113030", fhir.Val(dcm.Code))
	kod, _ := fhir.Extensions(comp.Extension).String(ExtKeyObjectDescription)
	assert.Equal(t, "Manifest for CT Chest", kod)

	study := fhir.Of[*r4.ImagingStudy](c.Bundle)[0]
	assert.Equal(t, "urn:uuid:"+fhir.Val(study.Id), fhir.Val(comp.Section[0].Entry[0].Reference))
	assert.Equal(t, "urn:uuid:"+fhir.Val(fhir.Of[*r4.Patient](c.Bundle)[0].Id), fhir.Val(comp.Subject.Reference))
}

func TestPatientIdentifier(t *testing.T) {
	c := convert(t, kostest.Manifest())
	p := fhir.Of[*r4.Patient](c.Bundle)[0]
	require.Len(t, p.Identifier, 1)
	assert.Equal(t, kostest.PatientID, fhir.Val(p.Identifier[0].Value))
	assert.Equal(t, "urn:oid:"+kostest.PatientIssuer, fhir.Val(p.Identifier[0].System))
	assert.Equal(t, r4.AdministrativeGenderFemale, fhir.Val(p.Gender))
	assert.Equal(t, "1970-01-01", fhir.Val(p.BirthDate))
	assert.Equal(t, "Doe", fhir.Val(p.Name[0].Family))
	assert.Equal(t, []string{"Jane"}, p.Name[0].Given)

	man := kostest.Manifest()
	man.Meta.IssuerOfPatientID = opt.Of("HOSPITAL_A")
	p = fhir.Of[*r4.Patient](convert(t, man).Bundle)[0]
	assert.Nil(t, p.Identifier[0].System)
	require.NotNil(t, p.Identifier[0].Assigner)
	assert.Equal(t, "HOSPITAL_A", fhir.Val(p.Identifier[0].Assigner.Display))
}

func TestPlaceholderReferrer(t *testing.T) {
	for _, name := range []string{"^^^^", "-", ""} {
		man := kostest.Manifest()
		man.Meta.ReferringPhysicianName = opt.Of(name)
		b := convert(t, man).Bundle
		assert.Empty(t, fhir.Of[*r4.Practitioner](b), name)
		study := fhir.Of[*r4.ImagingStudy](b)[0]
		assert.Nil(t, study.Referrer, name)
		_, found := recovered(study.Extension, ExtReferringPhysicianName)
		assert.True(t, found, name)
	}

	b := convert(t, kostest.Manifest()).Bundle
	practitioners := fhir.Of[*r4.Practitioner](b)
	require.Len(t, practitioners, 1)
	study := fhir.Of[*r4.ImagingStudy](b)[0]
	assert.Equal(t, "urn:uuid:"+fhir.Val(practitioners[0].Id), fhir.Val(study.Referrer.Reference))
}

func TestDeviceDefaults(t *testing.T) {
	man := kostest.Manifest()
	man.Meta.Manufacturer = opt.Unset()
	man.Meta.InstitutionName = opt.Empty()
	ds, err := man.Dataset()
	require.NoError(t, err)

	// Manufacturer is Type 2, so a rendered dataset always carries it
	assert.True(t, dicom.HasElement(ds, tag.Manufacturer))
	assert.Equal(t, opt.StateEmpty, ds.Text(tag.Manufacturer).State())

	// a source that never carried the element keeps it unset
	dicom.DeleteElement(ds, tag.Manufacturer)
	c, err := New().Convert(ds)
	require.NoError(t, err)
	d := fhir.Of[*r4.Device](c.Bundle)[0]
	assert.Equal(t, DefaultManufacturer, fhir.Val(d.Manufacturer))
	assert.Equal(t, DefaultInstitution, fhir.Val(d.Owner.Display))
	assert.Len(t, c.Notes.ByCode(report.CodeDefaulted), 2)

	manufacturer, found := recovered(d.Extension, ExtManufacturer)
	assert.True(t, found)
	assert.Equal(t, opt.StateUnset, manufacturer.State())
	institution, _ := recovered(d.Extension, ExtInstitutionName)
	assert.Equal(t, opt.StateEmpty, institution.State())

	// absent and empty manufacturers name the same device
	rendered := fhir.Of[*r4.Device](convert(t, man).Bundle)[0]
	assert.Equal(t, fhir.Val(d.Id), fhir.Val(rendered.Id))
	manufacturer, _ = recovered(rendered.Extension, ExtManufacturer)
	assert.Equal(t, opt.StateEmpty, manufacturer.State())

	d = fhir.Of[*r4.Device](convert(t, man, WithDefaultManufacturer("Vendor X")).Bundle)[0]
	assert.Equal(t, "Vendor X", fhir.Val(d.Manufacturer))
}

func TestEndpointsDeduplicated(t *testing.T) {
	man := kostest.Manifest()
	second := &kos.EvidenceSeries{
		SeriesInstanceUID: "1.2.826.0.1.3680043.8.498.12",
		Modality:          "CT",
		RetrieveURL:       kostest.WadoBase + "/studies/" + kostest.StudyUID + "/series/1.2.826.0.1.3680043.8.498.12",
		Instances: []*kos.EvidenceInstance{
			{SOPClassUID: kostest.CTImageStorage, SOPInstanceUID: "1.2.826.0.1.3680043.8.498.12.1"},
		},
	}
	man.Evidence.Studies[0].Series = append(man.Evidence.Studies[0].Series, second)
	b := convert(t, man).Bundle

	endpoints := fhir.Of[*r4.Endpoint](b)
	require.Len(t, endpoints, 1)
	assert.Equal(t, kostest.WadoBase, fhir.Val(endpoints[0].Address))
	assert.Equal(t, "dicom-wado-rs", fhir.Val(endpoints[0].ConnectionType.Code))
	assert.Equal(t, r4.EndpointStatusActive, fhir.Val(endpoints[0].Status))

	study := fhir.Of[*r4.ImagingStudy](b)[0]
	assert.Equal(t, uint32(2), fhir.Val(study.NumberOfSeries))
	assert.Equal(t, uint32(3), fhir.Val(study.NumberOfInstances))
	assert.Len(t, study.Endpoint, 1)
	assert.Equal(t, "1.2.826.0.1.3680043.8.498.12", fhir.Val(study.Series[1].Uid))
}

func TestSelectionsGroupedByCode(t *testing.T) {
	man := kostest.Manifest()
	quality := kostest.KeyImage(sr.QualityIssue, kostest.InstanceUID1)
	quality.Add(sr.NewCode(sr.HasConceptMod, sr.DocumentTitleModifier, sr.Code{Value: "111210", Scheme: sr.SchemeDCM, Meaning: "Motion blur"}))
	man.Root.Add(
		kostest.KeyImage(sr.OfInterest, kostest.InstanceUID1),
		quality,
		kostest.KeyImage(sr.OfInterest, kostest.InstanceUID2),
	)
	b := convert(t, man).Bundle

	basics := fhir.Of[*r4.Basic](b)
	require.Len(t, basics, 2)
	code, _ := fhir.FirstCoding(&basics[0].Code)
	assert.Equal(t, "113000", fhir.Val(code.Code))
	assert.Len(t, fhir.Extensions(basics[0].Extension).FindAll(ExtSelectedInstance), 2)
	assert.Len(t, fhir.Extensions(basics[1].Extension).FindAll(ExtSelectedInstance), 1)

	back, ok := fhir.Extensions(basics[0].Extension).Find(ExtImagingStudy)
	require.True(t, ok)
	assert.Equal(t, "urn:uuid:"+fhir.Val(fhir.Of[*r4.ImagingStudy](b)[0].Id), fhir.Val(back.ValueReference.Reference))

	// selections follow the ImagingStudy
	types := resourceTypes(b)
	assert.Equal(t, []string{"Basic", "Basic"}, types[len(types)-2:])
	assert.NotEqual(t, fhir.Val(basics[0].Id), fhir.Val(basics[1].Id))
}

func TestDeterministicIdentities(t *testing.T) {
	a := convert(t, kostest.Manifest()).Bundle
	b := convert(t, kostest.Manifest()).Bundle
	assert.Equal(t, fullURLs(a), fullURLs(b))

	r1 := convert(t, kostest.Manifest(), WithDeterministic(false)).Bundle
	r2 := convert(t, kostest.Manifest(), WithDeterministic(false)).Bundle
	assert.NotEqual(t, fullURLs(r1), fullURLs(r2))
}

func TestUnsupportedDocument(t *testing.T) {
	ds, err := kostest.Dataset()
	require.NoError(t, err)
	require.NoError(t, ds.Apply(dicom.WithElement(tag.SOPClassUID, dicom.CTImageStorageUID)))
	require.NoError(t, ds.Apply(dicom.WithElement(tag.MediaStorageSOPClassUID, dicom.CTImageStorageUID)))

	_, err = ToBundle(ds)
	assert.True(t, errors.Is(err, kos.ErrUnsupportedDocument))
}

func TestBundleJSON(t *testing.T) {
	c := convert(t, kostest.Manifest())
	var buf bytes.Buffer
	require.NoError(t, fhir.Encode(&buf, c.Bundle))
	assert.Contains(t, buf.String(), `"resourceType": "ImagingStudy"`)
	decoded, err := fhir.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, fullURLs(c.Bundle), fullURLs(decoded))
	assert.Equal(t, resourceTypes(c.Bundle), resourceTypes(decoded))
}

func fullURLs(b *r4.Bundle) []string {
	out := make([]string, len(b.Entry))
	for i, e := range b.Entry {
		out[i] = fhir.Val(e.FullUrl)
	}
	return out
}

func TestMapperLogsCarryContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.AppendCtx(context.Background(), slog.String("input", "kos.dcm"))
	log := logging.FromCtx(ctx, logging.Logger(&buf, true, slog.LevelDebug))

	New(WithLogger(log)).ConvertManifest(kostest.Manifest())

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "converted manifest to bundle", rec["msg"])
	assert.Equal(t, "kos.dcm", rec["input"])
	assert.Equal(t, kostest.ManifestUID, rec["sop_instance_uid"])
}
