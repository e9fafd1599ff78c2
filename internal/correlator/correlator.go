// Package correlator implements the pending-request correlator: a
// registry of one-shot promises keyed by correlation id, used by the
// router to block an inbound HTTP call while the matching response
// travels back across the bus.
package correlator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/piizei/a2a-proxy/internal/logger"
	"github.com/piizei/a2a-proxy/internal/metrics"
	"github.com/piizei/a2a-proxy/internal/model"
)

// DefaultSweepInterval is how often the correlator checks for entries
// whose deadline has passed without explicit completion.
const DefaultSweepInterval = 60 * time.Second

// pending is a single outstanding correlation id awaiting exactly one
// completion: a response, a bus-reported error, a timeout, or shutdown.
type pending struct {
	resultCh chan result
	deadline time.Time
	once     sync.Once
}

type result struct {
	envelope *model.Envelope
	err      error
}

// Correlator tracks in-flight requests by correlation id and resolves
// each exactly once.
type Correlator struct {
	mu      sync.Mutex
	entries map[string]*pending

	sweepInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// New constructs a Correlator. A sweepInterval of 0 uses DefaultSweepInterval.
func New(sweepInterval time.Duration) *Correlator {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Correlator{
		entries:       make(map[string]*pending),
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start launches the background sweeper that expires entries past their
// deadline even if no caller ever observes the timeout via Wait.
func (c *Correlator) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop halts the sweeper and resolves every still-pending entry with a
// shutdown error, waking any blocked Wait callers.
func (c *Correlator) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, p := range c.entries {
		p.complete(result{err: fmt.Errorf("correlator: shutting down")})
		delete(c.entries, id)
	}
	metrics.PendingCorrelations.Set(0)
}

// Register creates a new pending entry for correlationID with the given
// timeout, returning a handle usable with Wait. Registering an id that is
// already outstanding overwrites it with a warning: the prior entry is
// silently dropped, not completed, and any caller still blocked in Wait
// on it resolves only through its own context deadline.
func (c *Correlator) Register(correlationID string, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[correlationID]; exists {
		logger.Warn("correlator: overwriting already-registered correlation id", "correlationId", correlationID)
	}
	c.entries[correlationID] = &pending{
		resultCh: make(chan result, 1),
		deadline: time.Now().Add(timeout),
	}
	metrics.PendingCorrelations.Set(float64(len(c.entries)))
	return nil
}

// Cancel removes correlationID's pending entry without completing it,
// used when the caller already knows no response can ever arrive (for
// example, the publish that would have triggered one failed).
func (c *Correlator) Cancel(correlationID string) {
	c.remove(correlationID)
}

// Wait blocks until correlationID is completed (by HandleResponse,
// HandleError, Stop, or a sweep-detected timeout) or ctx is canceled,
// whichever happens first.
func (c *Correlator) Wait(ctx context.Context, correlationID string) (*model.Envelope, error) {
	c.mu.Lock()
	p, exists := c.entries[correlationID]
	c.mu.Unlock()
	if !exists {
		return nil, fmt.Errorf("correlator: correlation id %q not registered", correlationID)
	}

	defer c.remove(correlationID)

	select {
	case r := <-p.resultCh:
		return r.envelope, r.err
	case <-ctx.Done():
		p.complete(result{err: ctx.Err()})
		return nil, ctx.Err()
	}
}

// HandleResponse completes a pending entry with the matching envelope.
// It is a no-op if the correlation id is unknown or already completed.
func (c *Correlator) HandleResponse(correlationID string, envelope *model.Envelope) {
	c.mu.Lock()
	p, exists := c.entries[correlationID]
	c.mu.Unlock()
	if !exists {
		logger.Debug("correlator: response for unknown correlation id", "correlationId", correlationID)
		return
	}
	p.complete(result{envelope: envelope})
}

// HandleError completes a pending entry with a bus-reported error.
func (c *Correlator) HandleError(correlationID string, err error) {
	c.mu.Lock()
	p, exists := c.entries[correlationID]
	c.mu.Unlock()
	if !exists {
		return
	}
	p.complete(result{err: err})
}

// Pending reports how many correlation ids are currently outstanding.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Correlator) remove(correlationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, correlationID)
	metrics.PendingCorrelations.Set(float64(len(c.entries)))
}

// sweep completes and removes every entry past its deadline. Deleting
// from the map here (not just completing the channel) is what keeps
// Correlator.entries from growing unboundedly when a caller never calls
// Wait on an id it registered.
func (c *Correlator) sweep() {
	now := time.Now()
	c.mu.Lock()
	expired := make([]*pending, 0)
	for id, p := range c.entries {
		if now.After(p.deadline) {
			expired = append(expired, p)
			delete(c.entries, id)
		}
	}
	metrics.PendingCorrelations.Set(float64(len(c.entries)))
	c.mu.Unlock()

	for _, p := range expired {
		p.complete(result{err: fmt.Errorf("correlator: timed out waiting for response")})
	}
}

// complete resolves p exactly once; subsequent calls are no-ops, which is
// what makes response/timeout/shutdown/error race-safe.
func (p *pending) complete(r result) {
	p.once.Do(func() {
		p.resultCh <- r
	})
}
