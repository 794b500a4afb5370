package module

import (
	"testing"

	"github.com/jpfielding/mado.go/pkg/dicom/tag"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTime(t *testing.T) {
	assert.Equal(t, "2024-01-02T10:15:00+01:00", DateTime("20240102", "101500", "+0100"))
	assert.Equal(t, "2024-01-02T10:15:00", DateTime("20240102", "1015", ""))
	assert.Equal(t, "2024-01-02", DateTime("2024.01.02", "", ""))
	assert.Equal(t, "2024-01-02", DateTime("20240102", "bogus", ""))
	assert.Equal(t, "", DateTime("", "101500", ""))
}

func TestSplitDateTime(t *testing.T) {
	tests := []struct {
		iso, date, tm, offset string
	}{
		{"2024-01-02T10:15:00+01:00", "20240102", "101500", "+0100"},
		{"2024-01-02T10:15:00Z", "20240102", "101500", "+0000"},
		{"2024-01-02T10:15:00.25-05:00", "20240102", "101500.250000", "-0500"},
		{"2024-01-02", "20240102", "", ""},
		{"", "", "", ""},
	}
	for _, tc := range tests {
		date, tm, offset := SplitDateTime(tc.iso)
		assert.Equal(t, tc.date, date, tc.iso)
		assert.Equal(t, tc.tm, tm, tc.iso)
		assert.Equal(t, tc.offset, offset, tc.iso)
	}
}

func TestParseTime(t *testing.T) {
	tm, err := ParseTime("235959.5")
	require.NoError(t, err)
	assert.Equal(t, Time{Hour: 23, Minute: 59, Second: 59, Nano: 500000000}, tm)

	_, err = ParseTime("2460")
	assert.Error(t, err)
	_, err = ParseTime("1")
	assert.Error(t, err)
}

func TestPersonName(t *testing.T) {
	pn := ParsePersonName("Doe^Jane^^Dr=ドウ^ジェーン")
	assert.Equal(t, PersonName{FamilyName: "Doe", GivenName: "Jane", Prefix: "Dr"}, pn)
	assert.Equal(t, "Doe^Jane^^Dr", pn.String())
	assert.True(t, ParsePersonName("").IsEmpty())
}

func TestIssuerSequence(t *testing.T) {
	oid := IssuerSequence(tag.IssuerOfAccessionNumberSequence, "1.2.3.4")
	require.Len(t, oid.Items, 1)
	assert.Equal(t, tag.UniversalEntityID, oid.Items[0][0].Tag)

	local := IssuerSequence(tag.IssuerOfAccessionNumberSequence, "HOSP")
	require.Len(t, local.Items, 1)
	assert.Equal(t, tag.LocalNamespaceEntityID, local.Items[0][0].Tag)

	assert.True(t, IsOID("2.25.1"))
	assert.False(t, IsOID("1..2"))
	assert.False(t, IsOID("1.2."))
	assert.False(t, IsOID("HOSP"))
}

func TestCodeToTags(t *testing.T) {
	tags := Code{Value: "113030", Scheme: "DCM", Meaning: "Manifest"}.ToTags()
	assert.Len(t, tags, 3)
	tags = Code{Value: "1", Scheme: "UCUM", Meaning: "no units", Version: "1.4"}.ToTags()
	assert.Equal(t, tag.CodingSchemeVersion, tags[3].Tag)
}

func TestType2AlwaysRendered(t *testing.T) {
	values := map[tag.Tag]interface{}{}
	for _, e := range (&GeneralEquipmentModule{}).ToTags() {
		values[e.Tag] = e.Value
	}
	assert.Equal(t, opt.Empty(), values[tag.Manufacturer])
	assert.Equal(t, opt.Unset(), values[tag.InstitutionName])

	kept := (&GeneralEquipmentModule{Manufacturer: opt.Of("ACME")}).ToTags()
	assert.Equal(t, opt.Of("ACME"), kept[0].Value)
}
