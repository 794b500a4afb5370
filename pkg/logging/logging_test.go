package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, true, slog.LevelDebug)

	ctx := AppendCtx(context.Background(), slog.String("cmd", "tofhir"))
	ctx = AppendCtx(ctx, slog.String("file", "kos.dcm"))
	log.InfoContext(ctx, "converted", "resources", 6)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "converted", rec["msg"])
	assert.Equal(t, "tofhir", rec["cmd"])
	assert.Equal(t, "kos.dcm", rec["file"])
	assert.EqualValues(t, 6, rec["resources"])
}

func TestFromCtx(t *testing.T) {
	var buf bytes.Buffer
	ctx := AppendCtx(context.Background(), slog.String("input", "kos.dcm"))
	FromCtx(ctx, Logger(&buf, true, slog.LevelDebug)).Debug("no context here")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kos.dcm", rec["input"])

	plain := Logger(&buf, true, slog.LevelDebug)
	assert.Same(t, plain, FromCtx(context.Background(), plain))
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := Logger(&buf, false, slog.LevelWarn)
	log.Info("hidden")
	assert.Zero(t, buf.Len())
	log.With("k", "v").Warn("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "k=v")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mado.log")
	w := FileWriter(path)
	Logger(w, false, slog.LevelInfo).Info("to file")
	require.NoError(t, w.Close())
	assert.FileExists(t, path)
}
