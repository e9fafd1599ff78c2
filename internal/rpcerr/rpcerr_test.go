package rpcerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/piizei/a2a-proxy/internal/rpcerr"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := rpcerr.New("router", "route", rpcerr.AgentUnavailable, cause)

	assert.Equal(t, "router", err.Component)
	assert.Equal(t, "route", err.Operation)
	assert.Equal(t, rpcerr.AgentUnavailable, err.Code)
	assert.Equal(t, cause, err.Cause)
}

func TestError_Message(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	err := rpcerr.New("router", "route", rpcerr.Timeout, cause)
	assert.Contains(t, err.Error(), "[router] route")
	assert.Contains(t, err.Error(), "dial tcp: timeout")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code rpcerr.Code
		want int
	}{
		{rpcerr.AgentNotFound, 404},
		{rpcerr.AgentUnavailable, 502},
		{rpcerr.Timeout, 504},
		{rpcerr.UnsupportedOperation, 501},
		{rpcerr.InternalError, 500},
	}
	for _, tt := range tests {
		err := rpcerr.New("x", "y", tt.code, nil)
		assert.Equal(t, tt.want, err.HTTPStatus())
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := rpcerr.New("bus", "send", rpcerr.InternalError, cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestWithDetails(t *testing.T) {
	err := rpcerr.New("bus", "send", rpcerr.InternalError, nil)
	result := err.WithDetails(map[string]any{"topic": "a2a.review.requests"})
	assert.Same(t, err, result)
	assert.Equal(t, "a2a.review.requests", err.Details["topic"])
}
