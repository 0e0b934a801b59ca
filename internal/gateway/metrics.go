package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/tgrelay/internal/metrics"
)

// instrument counts requests and observes their latency.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return promhttp.InstrumentHandlerCounter(m.HTTPRequests,
			promhttp.InstrumentHandlerDuration(m.HTTPDuration, next),
		)
	}
}
