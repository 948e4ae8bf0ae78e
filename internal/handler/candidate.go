package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"interviewer/internal/model"
	srt "interviewer/internal/utils/sort"
)

// CreateCandidate registers a candidate from the parsed resume fields. When the profile
// is complete the response also carries the freshly opened session.
func (h *Handler) CreateCandidate(c *gin.Context) {
	var profile model.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intake, err := h.session.CreateCandidate(c.Request.Context(), profile)
	if err != nil {
		if intake != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "candidate": intake.Candidate})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, intake)
}

func (h *Handler) ListCandidates(c *gin.Context) {
	var q srt.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	candidates, err := h.session.ListCandidates(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

func (h *Handler) GetCandidate(c *gin.Context) {
	candidate, err := h.session.Candidate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// DetectResumable answers with the unfinished candidate to offer on the welcome-back
// screen, or 204 when there is none.
func (h *Handler) DetectResumable(c *gin.Context) {
	candidate, err := h.session.DetectResumable(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if candidate == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

func (h *Handler) CompleteProfile(c *gin.Context) {
	var profile model.Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.session.CompleteProfile(c.Request.Context(), c.Param("id"), profile)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) OpenSession(c *gin.Context) {
	resume := false
	if raw := c.Query("resume"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resume flag"})
			return
		}
		resume = parsed
	}

	view, err := h.session.OpenSession(c.Request.Context(), c.Param("id"), resume)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
