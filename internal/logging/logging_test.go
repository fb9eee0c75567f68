package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uplifor/aac-api/internal/logging"
)

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestFromContext_AttachesRequestID(t *testing.T) {
	buf := captureDefault(t)
	ctx := logging.WithRequestID(context.Background(), "req-42")

	logging.FromContext(ctx).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-42", line["requestId"])
	assert.Equal(t, "req-42", logging.RequestID(ctx))
}

func TestFromContext_WithoutRequestID(t *testing.T) {
	buf := captureDefault(t)

	logging.FromContext(context.Background()).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "requestId")
	assert.Empty(t, logging.RequestID(context.Background()))
}
