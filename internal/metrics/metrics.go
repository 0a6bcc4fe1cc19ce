// Package metrics provides Prometheus instrumentation for the engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DepositsTotal counts collateral deposits accepted by the vault.
	DepositsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiblock_deposits_total",
		Help: "Total collateral deposits accepted",
	})

	// MintsTotal counts synthetic-asset mints.
	MintsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiblock_mints_total",
		Help: "Total synthetic asset mints",
	})

	// BurnsTotal counts synthetic-asset burns.
	BurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiblock_burns_total",
		Help: "Total synthetic asset burns",
	})

	// SwapsTotal counts pool swaps, partitioned by direction.
	SwapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equiblock_swaps_total",
		Help: "Total pool swaps executed",
	}, []string{"direction"})

	// LiquidityAddsTotal counts liquidity contributions to the pool.
	LiquidityAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiblock_liquidity_adds_total",
		Help: "Total liquidity contributions",
	})

	// OracleUpdatesTotal counts accepted price updates, partitioned by
	// oracle variant.
	OracleUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equiblock_oracle_updates_total",
		Help: "Total accepted oracle price updates",
	}, []string{"variant"})

	// LastOraclePrice tracks the last observed oracle price in USD.
	LastOraclePrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "equiblock_oracle_price_usd",
		Help: "Last observed oracle price in USD",
	})

	// RejectionsTotal counts operations rejected by the engine,
	// partitioned by reason.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equiblock_rejections_total",
		Help: "Operations rejected by the engine",
	}, []string{"reason"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "equiblock_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equiblock_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "equiblock_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
