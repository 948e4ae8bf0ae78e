package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"interviewer/internal/model"
)

type answerRequest struct {
	Answer string `json:"answer"`
}

type draftRequest struct {
	Text string `json:"text"`
}

func (h *Handler) Current(c *gin.Context) {
	view := h.session.Current()
	if view == nil {
		h.fail(c, model.ErrNoActiveSession)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) SetDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.session.SetDraft(c.Request.Context(), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitAnswer is the manual submit. Automatic submissions come from the timer only.
func (h *Handler) SubmitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.session.SubmitAnswer(c.Request.Context(), req.Answer, false)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Pause(c *gin.Context) {
	view, err := h.session.Pause(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Resume(c *gin.Context) {
	view, err := h.session.Resume(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Close(c *gin.Context) {
	if err := h.session.Close(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
