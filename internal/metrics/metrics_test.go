package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAreUsable(t *testing.T) {
	RequestsTotal.WithLabelValues("/v1/messages:send", "2xx").Inc()
	RouteDuration.WithLabelValues("local").Observe(0.01)
	BusMessagesPublished.WithLabelValues("request").Inc()
	BusMessagesReceived.WithLabelValues("request", "completed").Inc()
	BusReceiveRestarts.WithLabelValues("sub-proxy-a-billing").Inc()
	PendingCorrelations.Set(3)
	ActiveSessions.Set(7)
	RegisteredAgents.WithLabelValues("billing").Set(2)

	assert.Equal(t, float64(3), testutil.ToFloat64(PendingCorrelations))
}
