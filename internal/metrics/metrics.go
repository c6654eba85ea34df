package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nuclear", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nuclear", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nuclear", Name: "rate_limited_total", Help: "Requests rejected by the rate limiter",
	})
	PointsAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nuclear", Name: "points_awarded_total", Help: "Points recorded in the ledger",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nuclear", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, RateLimited, PointsAwarded, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// ObserveRequest records one finished request. route is the mux pattern,
// not the raw path, to keep label cardinality bounded.
func ObserveRequest(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
