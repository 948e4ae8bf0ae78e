package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"interviewer/internal/config"
	"interviewer/internal/metrics"
	"interviewer/internal/model"
)

const (
	generatePath = "/api/generate-questions"
	gradePath    = "/api/grade-answer"
	summaryPath  = "/api/final-summary"
)

// Backend talks to the interview REST backend.
type Backend struct {
	client *resty.Client
	logger *zap.Logger
}

type generateRequest struct {
	Role  string   `json:"role"`
	Stack []string `json:"stack"`
}

type generateResponse struct {
	Questions []model.Question `json:"questions"`
}

type gradeRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type summaryRequest struct {
	Candidate *model.Candidate `json:"candidate"`
}

func NewBackend(cfg config.Backend, logger *zap.Logger) *Backend {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Backend{client: client, logger: logger}
}

func (b *Backend) GenerateQuestions(ctx context.Context, role string, stack []string) ([]model.Question, error) {
	var out generateResponse
	err := b.post(ctx, ServiceQuestions, generatePath, generateRequest{Role: role, Stack: stack}, &out)
	metrics.ServiceCall(ServiceQuestions, err)
	if err != nil {
		return nil, err
	}
	return normalizeQuestions(out.Questions), nil
}

func (b *Backend) GradeAnswer(ctx context.Context, question, answer string) (*model.Grade, error) {
	var out model.Grade
	err := b.post(ctx, ServiceGrading, gradePath, gradeRequest{Question: question, Answer: answer}, &out)
	metrics.ServiceCall(ServiceGrading, err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Backend) FinalSummary(ctx context.Context, candidate *model.Candidate) (*model.Summary, error) {
	var out model.Summary
	err := b.post(ctx, ServiceSummary, summaryPath, summaryRequest{Candidate: candidate}, &out)
	metrics.ServiceCall(ServiceSummary, err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Backend) post(ctx context.Context, service, path string, body, out any) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		b.logger.Warn("Backend request failed", zap.String("service", service), zap.Error(err))
		return unavailable(service, err)
	}

	if resp.IsError() {
		b.logger.Warn("Backend returned non-success status",
			zap.String("service", service),
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return unavailable(service, fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return unavailable(service, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
