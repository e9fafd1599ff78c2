package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextHandler_EnrichesRecord(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := slog.New(&contextHandler{Handler: base})

	ctx := WithProxyID(context.Background(), "proxy-1")
	ctx = WithCorrelationID(ctx, "c1")

	l.InfoContext(ctx, "dispatched")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "proxy-1", decoded["proxy_id"])
	require.Equal(t, "c1", decoded["correlation_id"])
}

func TestContextHandler_NoFieldsWhenAbsent(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := slog.New(&contextHandler{Handler: base})

	l.InfoContext(context.Background(), "no context fields")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.NotContains(t, decoded, "proxy_id")
	require.NotContains(t, decoded, "correlation_id")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("whatever"))
}

func TestSetLevel_PreservesFormat(t *testing.T) {
	prevFormat := currentFormat
	t.Cleanup(func() {
		currentFormat = prevFormat
		SetLevel(slog.LevelInfo)
	})
	currentFormat = "json"

	SetLevel(slog.LevelDebug)
	require.NotNil(t, DefaultLogger)
	h, ok := DefaultLogger.Handler().(*contextHandler)
	require.True(t, ok)
	_, isJSON := h.Handler.(*slog.JSONHandler)
	require.True(t, isJSON, "SetLevel must keep the configured json format")

	SetLevel(slog.LevelInfo)
	require.NotNil(t, DefaultLogger)
}
