package features

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"interviewer/internal/model"
	rabbit "interviewer/pkg/rabbit/pkg"
)

// Notifier receives user-facing session events. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, event model.Event)
}

// Notifiers fans an event out to every notifier in order.
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, event model.Event) {
	for _, notifier := range n {
		notifier.Notify(ctx, event)
	}
}

// RabbitNotifier publishes the terminal outcome of each session.
type RabbitNotifier struct {
	rabbit  rabbit.Rabbit
	logger  *zap.Logger
	timeout time.Duration
}

func NewRabbitNotifier(r rabbit.Rabbit, logger *zap.Logger) *RabbitNotifier {
	return &RabbitNotifier{rabbit: r, logger: logger, timeout: 10 * time.Second}
}

func (r *RabbitNotifier) Notify(ctx context.Context, event model.Event) {
	switch event.Type {
	case model.EventSessionCompleted, model.EventSummaryFailed:
	default:
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("Failed to marshal event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		if err := r.rabbit.Publish(ctx, body); err != nil {
			r.logger.Warn("Failed to publish session outcome",
				zap.String("candidateId", event.CandidateID),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}()
}
