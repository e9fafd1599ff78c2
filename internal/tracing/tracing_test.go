package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider(t *testing.T) {
	tp, err := NewProvider("proxy-a")
	require.NoError(t, err)
	assert.NotNil(t, tp)
}

func TestStartRouteSpan(t *testing.T) {
	_, err := NewProvider("proxy-a")
	require.NoError(t, err)

	ctx, span := StartRouteSpan(context.Background(), "agent-1", "local")
	assert.NotNil(t, ctx)
	EndWithError(span, nil)
}

func TestStartBusSpan_RecordsError(t *testing.T) {
	tp, err := NewProvider("proxy-a")
	require.NoError(t, err)
	rec := tracetest.NewSpanRecorder()
	tp.RegisterSpanProcessor(rec)

	_, span := StartBusSpan(context.Background(), "publish", "a2a.billing.requests")
	EndWithError(span, errors.New("publish failed"))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "publish failed", ended[0].Status().Description)
}
