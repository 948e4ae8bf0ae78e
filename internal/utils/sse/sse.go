package sse

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"interviewer/internal/model"
)

const DefaultBuffer = 32

// Hub routes session events to the stream opened by each candidate's client.
// A candidate has at most one stream; a new one replaces the old.
type Hub struct {
	channels sync.Map // key: candidateID, value: chan model.Event
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger}
}

// Register opens the stream for candidateID. The returned func removes it; channels are
// never closed so a late send cannot panic.
func (h *Hub) Register(candidateID string, buffer int) (<-chan model.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan model.Event, buffer)
	h.channels.Store(candidateID, ch)

	return ch, func() {
		h.channels.CompareAndDelete(candidateID, ch)
	}
}

func (h *Hub) SendToCandidate(candidateID string, event model.Event) bool {
	if chVal, ok := h.channels.Load(candidateID); ok {
		if ch, ok := chVal.(chan model.Event); ok {
			select {
			case ch <- event:
				return true
			default:
				return false
			}
		}
	}
	return false
}

// Notify delivers event to its candidate's stream. Events for candidates without a
// listener, or whose buffer is full, are dropped.
func (h *Hub) Notify(ctx context.Context, event model.Event) {
	if !h.SendToCandidate(event.CandidateID, event) && event.Type != model.EventTick {
		h.logger.Debug("Event not delivered",
			zap.String("candidateId", event.CandidateID),
			zap.String("type", string(event.Type)))
	}
}
