package correlator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piizei/a2a-proxy/internal/model"
)

func TestRegisterAndHandleResponse(t *testing.T) {
	c := New(time.Hour)
	require.NoError(t, c.Register("corr-1", time.Second))

	env := &model.Envelope{CorrelationID: "corr-1"}
	go c.HandleResponse("corr-1", env)

	got, err := c.Wait(context.Background(), "corr-1")
	require.NoError(t, err)
	assert.Same(t, env, got)
	assert.Equal(t, 0, c.Pending())
}

func TestRegisterDuplicateOverwritesPriorEntry(t *testing.T) {
	c := New(time.Hour)
	require.NoError(t, c.Register("corr-1", time.Second))
	require.NoError(t, c.Register("corr-1", time.Second))
	assert.Equal(t, 1, c.Pending())

	env := &model.Envelope{CorrelationID: "corr-1"}
	go c.HandleResponse("corr-1", env)

	got, err := c.Wait(context.Background(), "corr-1")
	require.NoError(t, err)
	assert.Same(t, env, got)
}

func TestCancelRemovesEntryWithoutCompleting(t *testing.T) {
	c := New(time.Hour)
	require.NoError(t, c.Register("corr-1", time.Hour))
	c.Cancel("corr-1")
	assert.Equal(t, 0, c.Pending())

	_, err := c.Wait(context.Background(), "corr-1")
	assert.Error(t, err)
}

func TestWaitUnknownCorrelationFails(t *testing.T) {
	c := New(time.Hour)
	_, err := c.Wait(context.Background(), "missing")
	assert.Error(t, err)
}

func TestHandleError(t *testing.T) {
	c := New(time.Hour)
	require.NoError(t, c.Register("corr-1", time.Second))

	go c.HandleError("corr-1", assertError())

	_, err := c.Wait(context.Background(), "corr-1")
	assert.Error(t, err)
}

func assertError() error {
	return context.DeadlineExceeded
}

func TestWaitContextCancel(t *testing.T) {
	c := New(time.Hour)
	require.NoError(t, c.Register("corr-1", time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Wait(ctx, "corr-1")
	assert.Error(t, err)
}

func TestSweepExpiresStaleEntries(t *testing.T) {
	c := New(10 * time.Millisecond)
	require.NoError(t, c.Register("corr-1", 5*time.Millisecond))
	c.Start()
	defer c.Stop()

	_, err := c.Wait(context.Background(), "corr-1")
	assert.Error(t, err)
}

func TestStopResolvesPendingWithError(t *testing.T) {
	c := New(time.Hour)
	c.Start()
	require.NoError(t, c.Register("corr-1", time.Hour))

	done := make(chan error, 1)
	go func() {
		_, err := c.Wait(context.Background(), "corr-1")
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	c.Stop()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Stop")
	}
}

func TestExactlyOnceCompletion(t *testing.T) {
	c := New(time.Hour)
	require.NoError(t, c.Register("corr-1", time.Second))

	env := &model.Envelope{CorrelationID: "corr-1"}
	c.HandleResponse("corr-1", env)
	c.HandleResponse("corr-1", env) // second completion must not panic or block

	got, err := c.Wait(context.Background(), "corr-1")
	require.NoError(t, err)
	assert.Same(t, env, got)
}
