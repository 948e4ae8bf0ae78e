package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"interviewer/internal/config"
	"interviewer/internal/model"
)

const (
	ServiceQuestions = "question generation"
	ServiceGrading   = "grading"
	ServiceSummary   = "summary"
)

// Client is the backend that writes the questions, grades answers and summarizes a session.
// Every failure is returned as *model.ServiceUnavailableError.
type Client interface {
	GenerateQuestions(ctx context.Context, role string, stack []string) ([]model.Question, error)
	GradeAnswer(ctx context.Context, question, answer string) (*model.Grade, error)
	FinalSummary(ctx context.Context, candidate *model.Candidate) (*model.Summary, error)
}

// New picks the backend driver from configuration.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Client, error) {
	switch cfg.Backend.Driver {
	case "gemini":
		return NewGemini(ctx, cfg.Gemini, logger)
	case "http", "":
		return NewBackend(cfg.Backend, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}
}

func unavailable(service string, err error) error {
	return &model.ServiceUnavailableError{Service: service, Err: err}
}

// normalizeQuestions fills missing ids and lower-cases difficulty labels.
// Count and difficulty checks belong to the session controller.
func normalizeQuestions(qs []model.Question) []model.Question {
	for i := range qs {
		if strings.TrimSpace(qs[i].ID) == "" {
			qs[i].ID = uuid.NewString()
		}
		qs[i].Difficulty = model.Difficulty(strings.ToLower(strings.TrimSpace(string(qs[i].Difficulty))))
	}
	return qs
}
