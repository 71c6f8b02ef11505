package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	SetVerbose(false)
	SetFormat(FormatText)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestDebug_OnlyWhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("hidden", "k", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	Debug("shown", "k", 1)
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "k=1")
}

func TestInfoWarnError_AlwaysWritten(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("info message")
	Warn("warn message")
	Error("error message", "err", "boom")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "err=boom")
}

func TestComponent_FollowsOutputChanges(t *testing.T) {
	defer reset()

	log := Component("worker")

	var buf bytes.Buffer
	SetOutput(&buf)
	log.Info("claimed", "content_id", "b1")

	assert.Contains(t, buf.String(), "component=worker")
	assert.Contains(t, buf.String(), "content_id=b1")
}

func TestSetFormat_JSON(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat(FormatJSON)

	Component("indexer").Info("processed", "chunks", 3)

	line := strings.TrimSpace(buf.String())
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "processed", rec["msg"])
	assert.Equal(t, "indexer", rec["component"])
	assert.EqualValues(t, 3, rec["chunks"])
}

func TestSection_DebugOnly(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	Section("Extract")
	assert.Empty(t, buf.String())

	SetVerbose(true)
	Section("Extract")
	assert.Contains(t, buf.String(), "=== Extract ===")
}
