package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(serviceCalls.WithLabelValues("grading", "error"))
	ServiceCall("grading", errors.New("down"))
	assert.Equal(t, before+1, testutil.ToFloat64(serviceCalls.WithLabelValues("grading", "error")))

	before = testutil.ToFloat64(answers.WithLabelValues("auto"))
	AnswerSubmitted(true)
	assert.Equal(t, before+1, testutil.ToFloat64(answers.WithLabelValues("auto")))

	GradingPool(3, 7)
	assert.Equal(t, 3.0, testutil.ToFloat64(gradingWorkers))
	assert.Equal(t, 7.0, testutil.ToFloat64(gradingQueue))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `interviewer_http_requests_total{method="GET",path="/ping",status="204"}`)
}
