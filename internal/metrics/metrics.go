package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interviewer"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	serviceCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "service_calls_total",
		Help:      "Calls to the question, grading and summary services by outcome",
	}, []string{"service", "outcome"})

	answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_submitted_total",
		Help:      "Answers recorded, split by manual and timed out submission",
	}, []string{"mode"})

	sessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_completed_total",
		Help:      "Sessions that reached the completed stage",
	}, []string{"scored"})

	persistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persistence_failures_total",
		Help:      "Failed writes of the candidate collection",
	})

	gradingWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "grading_workers_active",
		Help:      "Workers currently alive in the grading pool",
	})

	gradingQueue = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "grading_jobs_queued",
		Help:      "Jobs waiting in the grading pool queue",
	})
)

func ServiceCall(service string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	serviceCalls.WithLabelValues(service, outcome).Inc()
}

func AnswerSubmitted(auto bool) {
	mode := "manual"
	if auto {
		mode = "auto"
	}
	answers.WithLabelValues(mode).Inc()
}

func SessionCompleted(scored bool) {
	sessionsCompleted.WithLabelValues(strconv.FormatBool(scored)).Inc()
}

func PersistenceFailure() {
	persistenceFailures.Inc()
}

// GradingPool publishes the current size of the grading worker pool.
func GradingPool(active, queued int) {
	gradingWorkers.Set(float64(active))
	gradingQueue.Set(float64(queued))
}

// Middleware records request metrics labelled by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		httpLatency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
