package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(imageCacheRequestsTotal) }

var imageCacheRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "image_cache_requests_total",
		Help: "Coffee image cache lookups by result (hit/miss/error).",
	},
	[]string{"result"},
)

func IncImageCache(result string) {
	imageCacheRequestsTotal.WithLabelValues(norm(result)).Inc()
}
