package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer, format Format) Logger {
	return NewWithConfig(Config{
		Name:   "test",
		Format: format,
		Level:  slog.LevelDebug,
		Writer: buf,
	})
}

func TestNewWithConfig_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf, FormatJSON)

	log.Info("hello", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "test", entry["package"])
}

func TestErrReturnsOriginalError(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf, FormatJSON)

	original := errors.New("boom")
	returned := log.Err("operation failed", original, "id", "c1")

	assert.Same(t, original, returned)
	assert.Contains(t, buf.String(), "operation failed")
}

func TestErrorWithTypeWrapsSentinel(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf, FormatJSON)

	sentinel := errors.New("sentinel")
	err := log.ErrorWithType(sentinel, "context message")

	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "context message")
}

func TestFunctionAndFileAttachAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf, FormatText)

	log.File("booking").Function("InitiateProposal").Info("checking")

	out := buf.String()
	assert.True(t, strings.Contains(out, "file=booking"))
	assert.True(t, strings.Contains(out, "function=InitiateProposal"))
}

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "trace-123")
	assert.Equal(t, "trace-123", TraceIDFromContext(ctx))

	var buf bytes.Buffer
	log := newBufferLogger(&buf, FormatText)
	log.TraceFromContext(ctx).Info("traced")

	assert.Contains(t, buf.String(), "trace-123")
}

func TestTraceFromContextWithoutIDIsNoop(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf, FormatText)

	log.TraceFromContext(context.Background()).Info("untraced")

	assert.NotContains(t, buf.String(), "traceID")
}
