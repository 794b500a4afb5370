package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpfielding/mado.go/pkg/dicom"
	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/fhir"
	"github.com/jpfielding/mado.go/pkg/kos"
	"github.com/jpfielding/mado.go/pkg/kos/kostest"
	"github.com/jpfielding/mado.go/pkg/sr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRoot(context.Background(), "abc123")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T, m *kos.Manifest) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kos.dcm")
	_, err := m.WriteFile(path)
	require.NoError(t, err)
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "abc123\n", out)
}

func TestRoundTripThroughFiles(t *testing.T) {
	in := writeFixture(t, kostest.Manifest())
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "bundle.json")
	kosPath := filepath.Join(dir, "back.dcm")

	_, err := run(t, "tofhir", "--uri", in, "--out", bundlePath)
	require.NoError(t, err)
	b, err := fhir.ReadFile(bundlePath)
	require.NoError(t, err)
	assert.Equal(t, r4.BundleTypeDocument, fhir.Val(b.Type))

	_, err = run(t, "todicom", bundlePath, "-o", kosPath)
	require.NoError(t, err)
	ds, err := dicom.ReadFile(kosPath)
	require.NoError(t, err)
	m, err := kos.Extract(ds)
	require.NoError(t, err)
	assert.Equal(t, kostest.ManifestUID, m.Meta.SOPInstanceUID)

	out, err := run(t, "validate", "--bundle", bundlePath)
	require.NoError(t, err)
	assert.Contains(t, out, "0 error(s)")
}

func TestValidateFormats(t *testing.T) {
	m := kostest.Manifest()
	m.Root.Add(kostest.KeyImage(sr.OfInterest, kostest.InstanceUID1))
	in := writeFixture(t, m)

	out, err := run(t, "validate", in, "--format", "json")
	assert.ErrorIs(t, err, ErrInvalid)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, false, doc["valid"])

	out, err = run(t, "validate", in, "--allow-duplicates")
	require.NoError(t, err)
	assert.Contains(t, out, "0 error(s)")

	out, err = run(t, "validate", in, "-f", "outcome")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, out, `"resourceType": "OperationOutcome"`)
}

func TestDump(t *testing.T) {
	in := writeFixture(t, kostest.Manifest())
	out, err := run(t, "dump", in, "--format", "manifest")
	require.NoError(t, err)
	assert.Contains(t, out, kostest.ManifestUID)
	assert.Contains(t, out, "Image Library")
	assert.True(t, strings.Contains(out, "2 instance(s)"))

	_, err = run(t, "dump", in, "--format", "yaml")
	assert.Error(t, err)
}

func TestMissingInput(t *testing.T) {
	_, err := run(t, "tofhir")
	assert.Error(t, err)
}
