package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	feat "interviewer/internal/features"
	"interviewer/internal/metrics"
	"interviewer/internal/model"
	srt "interviewer/internal/utils/sort"
	"interviewer/internal/utils/sse"
)

const defaultHeartbeat = 60 * time.Second

// poolReporter is implemented by controllers that run a grading pool.
type poolReporter interface {
	PoolMetrics() map[string]interface{}
}

// Handler serves the interview HTTP API and the per-candidate event stream.
type Handler struct {
	session   feat.ISession
	hub       *sse.Hub
	logger    *zap.Logger
	heartbeat time.Duration
}

func New(session feat.ISession, hub *sse.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		session:   session,
		hub:       hub,
		logger:    logger,
		heartbeat: defaultHeartbeat,
	}
}

// Register mounts every route on r. Middleware is left to the caller.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Health)
	r.GET("/metrics", metrics.Handler())
	r.GET("/sse/session", h.Stream)

	api := r.Group("/api")

	candidates := api.Group("/candidates")
	candidates.POST("", h.CreateCandidate)
	candidates.GET("", h.ListCandidates)
	candidates.GET("/resumable", h.DetectResumable)
	candidates.GET("/:id", h.GetCandidate)
	candidates.POST("/:id/profile", h.CompleteProfile)
	candidates.POST("/:id/session", h.OpenSession)

	session := api.Group("/session")
	session.GET("", h.Current)
	session.PUT("/draft", h.SetDraft)
	session.POST("/answer", h.SubmitAnswer)
	session.POST("/pause", h.Pause)
	session.POST("/resume", h.Resume)
	session.POST("/close", h.Close)
}

func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if p, ok := h.session.(poolReporter); ok {
		body["grading"] = p.PoolMetrics()
	}
	c.JSON(http.StatusOK, body)
}

func statusFor(err error) int {
	switch {
	case model.IsValidation(err),
		errors.Is(err, model.ErrEmptyAnswer),
		errors.Is(err, model.ErrProfileIncomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, srt.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrBusy),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrNoActiveSession):
		return http.StatusConflict
	case model.IsServiceUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("requestId", requestID(c)),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
