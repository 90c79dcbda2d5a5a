package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsLabelCardinality(t *testing.T) {
	// Both HTTP collectors carry method, path and status
	assert.NotPanics(t, func() {
		HTTPRequests.WithLabelValues("GET", "/health", "200").Inc()
		HTTPLatency.WithLabelValues("GET", "/health", "200").Observe(0.01)
	})
}
