package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stream holds an SSE connection open for one candidate and relays its session events,
// with a heartbeat to keep idle proxies from closing it.
func (h *Handler) Stream(c *gin.Context) {
	candidateID := c.Query("candidate_id")
	if candidateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "candidate_id is required"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	events, unregister := h.hub.Register(candidateID, 0)
	defer unregister()

	h.write(c, gin.H{
		"type":        "connection_established",
		"candidateId": candidateID,
		"timestamp":   time.Now().Unix(),
	})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			h.write(c, gin.H{
				"type":      "heartbeat",
				"timestamp": time.Now().Unix(),
			})
		case event := <-events:
			h.write(c, event)
		}
	}
}

func (h *Handler) write(c *gin.Context, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("Failed to encode stream message", zap.Error(err))
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}
