package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "foldershare"

// Share resolution outcomes.
const (
	ResultActive   = "active"
	ResultExpired  = "expired"
	ResultNotFound = "not_found"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	shareResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "share_resolutions_total",
		Help:      "Public share lookups by outcome.",
	}, []string{"result"})

	sharesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shares_created_total",
		Help:      "Share links issued.",
	})

	uploads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Files published after a successful upload.",
	})

	uploadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_bytes_total",
		Help:      "Bytes accepted by successful uploads.",
	})

	blobCleanupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blob_cleanup_failures_total",
		Help:      "Stored objects that could not be removed after their metadata was deleted.",
	})
)

// InitMetrics registers the collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			shareResolutions,
			sharesCreated,
			uploads,
			uploadBytes,
			blobCleanupFailures,
		)
	})
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ShareResolved counts one public share lookup.
func ShareResolved(result string) {
	shareResolutions.WithLabelValues(result).Inc()
}

// ShareCreated counts one issued share link.
func ShareCreated() {
	sharesCreated.Inc()
}

// UploadStored counts one published upload of size bytes.
func UploadStored(size int64) {
	uploads.Inc()
	if size > 0 {
		uploadBytes.Add(float64(size))
	}
}

// BlobCleanupFailed counts one orphaned object.
func BlobCleanupFailed() {
	blobCleanupFailures.Inc()
}
