package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gofhir/fhir/r4"
	"github.com/jpfielding/mado.go/pkg/fhir"
	"github.com/jpfielding/mado.go/pkg/kos/kostest"
	"github.com/jpfielding/mado.go/pkg/mado"
	"github.com/jpfielding/mado.go/pkg/opt"
	"github.com/jpfielding/mado.go/pkg/sr"
	"github.com/jpfielding/mado.go/pkg/validate"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.True(t, cfg.Deterministic)
	assert.False(t, cfg.AllowDuplicates)
	assert.Equal(t, mado.DefaultManufacturer, cfg.DefaultManufacturer)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mado.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default-manufacturer: FileCo\nallow-duplicates: true\nlog-level: warn\n"), 0o644))
	t.Setenv("MADO_DEFAULT_MANUFACTURER", "EnvCo")
	t.Setenv("MADO_DEFAULT_INSTITUTION", "Env Hospital")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(KeyDefaultInstitution, "", "")
	fs.Bool(KeyDeterministic, true, "")
	require.NoError(t, fs.Parse([]string{"--default-institution=Flag Hospital", "--deterministic=false"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.True(t, cfg.AllowDuplicates)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "EnvCo", cfg.DefaultManufacturer)
	assert.Equal(t, "Flag Hospital", cfg.DefaultInstitution)
	assert.False(t, cfg.Deterministic)
}

func TestInvalid(t *testing.T) {
	t.Setenv("MADO_LOG_FORMAT", "xml")
	t.Setenv("MADO_LOG_LEVEL", "chatty")
	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
	assert.Contains(t, err.Error(), "chatty")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	cfg.DefaultManufacturer = "Configured"
	cfg.AllowDuplicates = true

	m := kostest.Manifest()
	m.Meta.Manufacturer = opt.Unset()
	conv := mado.New(cfg.MapperOptions(nil)...).ConvertManifest(m)
	devices := fhir.Of[*r4.Device](conv.Bundle)
	require.Len(t, devices, 1)
	assert.Equal(t, "Configured", fhir.Val(devices[0].Manufacturer))

	m = kostest.Manifest()
	m.Root.Add(kostest.KeyImage(sr.OfInterest, kostest.InstanceUID1))
	assert.True(t, validate.New(cfg.ValidatorOptions()...).Validate(m).Valid())
}

func TestLoggerToFile(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	cfg.LogFile = filepath.Join(t.TempDir(), "mado.log")
	cfg.LogFormat = "json"
	log, closer := cfg.Logger(nil)
	log.Info("written")
	require.NoError(t, closer.Close())
	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written"`)
}
