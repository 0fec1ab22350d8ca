package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo, FormatJSON)
	logger.SetOutput(&buf)

	logger.WithFields(map[string]interface{}{
		"user": "42",
		"tier": "5",
	}).Info("Table logged")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry.Level)
	assert.Equal(t, "Table logged", entry.Message)
	assert.Equal(t, "42", entry.Fields["user"])
	assert.Equal(t, "5", entry.Fields["tier"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelWarn, FormatText)
	logger.SetOutput(&buf)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "warn: shown")
}

func TestLogger_DerivedLoggersShareOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo, FormatText)
	child := logger.WithField("component", "bot")

	// Redirecting the parent also redirects loggers derived from it.
	logger.SetOutput(&buf)
	child.WithError(errors.New("boom")).Error("send failed")

	line := buf.String()
	assert.Contains(t, line, "component=bot")
	assert.Contains(t, line, "error=boom")
	assert.Contains(t, line, "caller=")
	assert.Empty(t, logger.fields, "WithField must not mutate the parent")
}

func TestLogger_TextFieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo, FormatText)
	logger.SetOutput(&buf)

	logger.WithFields(map[string]interface{}{"b": 2, "a": 1}).Info("x")

	line := buf.String()
	assert.Less(t, strings.Index(line, "a=1"), strings.Index(line, "b=2"))
}

func TestFromContext(t *testing.T) {
	logger := NewNopLogger()
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
	assert.Equal(t, FormatText, ParseLogFormat("text"))
	assert.Equal(t, FormatJSON, ParseLogFormat("xml"))
}
