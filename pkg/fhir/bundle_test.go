package fhir

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/gofhir/fhir/r4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBundle() *r4.Bundle {
	b := &r4.Bundle{Type: Ptr(r4.BundleTypeDocument), Timestamp: Ptr("2024-01-02T10:30:00+01:00")}
	Add(b, &r4.Composition{
		Id:      Ptr("c"),
		Status:  Ptr(r4.CompositionStatusFinal),
		Type:    r4.CodeableConcept{Coding: []r4.Coding{NewCoding("http://loinc.org", "18748-4", "")}},
		Subject: RefPtr("Patient", "p"),
		Date:    Ptr("2024-01-02T10:30:00+01:00"),
		Author:  []r4.Reference{Ref("Device", "d")},
		Title:   Ptr("Manifest"),
	})
	Add(b, &r4.Patient{Id: Ptr("p"), Identifier: []r4.Identifier{{Value: Ptr("PAT-001")}}})
	Add(b, &r4.ImagingStudy{
		Id:      Ptr("s"),
		Status:  Ptr(r4.ImagingStudyStatusAvailable),
		Subject: Ref("Patient", "p"),
		Series: []r4.ImagingStudySeries{{
			Uid:      Ptr("1.2.3"),
			Modality: NewCoding("", "CT", ""),
			Instance: []r4.ImagingStudySeriesInstance{{Uid: Ptr("1.2.3.1"), Number: Count(1)}},
		}},
	})
	return b
}

func TestBundleRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleBundle()))
	assert.Contains(t, buf.String(), `"resourceType": "Bundle"`)
	assert.Contains(t, buf.String(), `"fullUrl": "urn:uuid:c"`)

	b, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, b.Entry, 3)
	assert.Equal(t, r4.BundleTypeDocument, Val(b.Type))
	assert.Equal(t, "Composition", b.Entry[0].Resource.GetResourceType())

	comp, ok := b.Entry[0].Resource.(*r4.Composition)
	require.True(t, ok)
	assert.Equal(t, "Manifest", Val(comp.Title))
	assert.Equal(t, "c", Val(comp.Id))

	studies := Of[*r4.ImagingStudy](b)
	require.Len(t, studies, 1)
	assert.Equal(t, uint32(1), Val(studies[0].Series[0].Instance[0].Number))

	p, ok := ResolveAs[*r4.Patient](b, comp.Subject)
	require.True(t, ok)
	assert.Equal(t, "PAT-001", Val(p.Identifier[0].Value))
	_, ok = ResolveAs[*r4.Device](b, &comp.Author[0])
	assert.False(t, ok)
	_, ok = ResolveAs[*r4.Patient](b, nil)
	assert.False(t, ok)

	assert.Len(t, Resources(b), 3)
	assert.Empty(t, Of[*r4.Device](b))
	assert.Empty(t, Of[*r4.Device](nil))
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(bytes.NewBufferString(`{"resourceType":"Bundle","type":"document","entry":[{"resource":{"id":"x"}}]}`))
	assert.Error(t, err)

	_, err = Decode(bytes.NewBufferString(`{"resourceType":"Patient","id":"x"}`))
	assert.Error(t, err)

	_, err = Decode(bytes.NewBufferString(`{`))
	assert.Error(t, err)
}

func TestPrimitiveHelpers(t *testing.T) {
	assert.Nil(t, Str(""))
	assert.Equal(t, "x", *Str("x"))
	assert.Equal(t, "", Val[string](nil))
	assert.Nil(t, Count(0))
	assert.Equal(t, uint32(3), *Count(3))

	c := NewCoding("", "CT", "")
	assert.Nil(t, c.System)
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"CT"}`, string(data))

	ref := Ref("Patient", "p")
	assert.Equal(t, "urn:uuid:p", Val(ref.Reference))
	assert.Equal(t, "Patient", Val(ref.Type))
}

func TestExtensions(t *testing.T) {
	ext := Extensions{
		StringExtension("a", "one"),
		IntegerExtension("b", 7),
		StringExtension("a", "two"),
	}
	s, ok := ext.String("a")
	assert.True(t, ok)
	assert.Equal(t, "one", s)
	i, ok := ext.Integer("b")
	assert.True(t, ok)
	assert.Equal(t, 7, i)
	assert.Len(t, ext.FindAll("a"), 2)
	_, ok = ext.Integer("a")
	assert.False(t, ok)

	p := &r4.Patient{Extension: ext}
	s, _ = Extensions(p.Extension).String("a")
	assert.Equal(t, "one", s)
}

func TestCodings(t *testing.T) {
	cc := &r4.CodeableConcept{Coding: []r4.Coding{NewCoding("x", "1", ""), NewCoding("y", "2", "")}}
	c, ok := FindCoding(cc, "y")
	assert.True(t, ok)
	assert.Equal(t, "2", Val(c.Code))
	first, ok := FirstCoding(cc)
	assert.True(t, ok)
	assert.Equal(t, "1", Val(first.Code))
	_, ok = FirstCoding(nil)
	assert.False(t, ok)
}
