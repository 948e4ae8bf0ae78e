package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"interviewer/internal/config"
	"interviewer/internal/metrics"
	"interviewer/internal/model"
)

// Gemini asks the Gemini API directly instead of going through the REST backend.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGemini(ctx context.Context, cfg config.Gemini, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key not set")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL, APIVersion: "v1beta"}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{client: client, model: model, logger: logger}, nil
}

func (g *Gemini) GenerateQuestions(ctx context.Context, role string, stack []string) ([]model.Question, error) {
	prompt := fmt.Sprintf(`You are interviewing a candidate for a %s role working with %s.
Write exactly 6 interview questions: 2 easy, 2 medium and 2 hard, in that order.
Return STRICTLY JSON with this schema:
{"questions": [{"id": "<short id>", "text": "<question>", "difficulty": "easy|medium|hard"}]}`,
		role, strings.Join(stack, ", "))

	text, err := g.generate(ctx, ServiceQuestions, prompt)
	metrics.ServiceCall(ServiceQuestions, err)
	if err != nil {
		return nil, err
	}

	list := gjson.Get(text, "questions")
	if !list.Exists() {
		list = gjson.Parse(text)
	}
	if !list.IsArray() {
		return nil, unavailable(ServiceQuestions, errors.New("response has no question list"))
	}

	var questions []model.Question
	for _, q := range list.Array() {
		questions = append(questions, model.Question{
			ID:         q.Get("id").String(),
			Text:       q.Get("text").String(),
			Difficulty: model.Difficulty(q.Get("difficulty").String()),
		})
	}
	return normalizeQuestions(questions), nil
}

func (g *Gemini) GradeAnswer(ctx context.Context, question, answer string) (*model.Grade, error) {
	prompt := fmt.Sprintf(`Grade the candidate's answer to an interview question on a scale from 0 to 10.
An answer of %q means the candidate ran out of time without typing anything.
Return STRICTLY JSON: {"score": <number 0-10>, "feedback": "<one or two sentences>"}

Question:
%s

Answer:
%s`, model.AutoSubmittedText, question, answer)

	text, err := g.generate(ctx, ServiceGrading, prompt)
	if err == nil && !gjson.Get(text, "score").Exists() {
		err = unavailable(ServiceGrading, errors.New("response has no score"))
	}
	metrics.ServiceCall(ServiceGrading, err)
	if err != nil {
		return nil, err
	}

	return &model.Grade{
		Score:    gjson.Get(text, "score").Float(),
		Feedback: gjson.Get(text, "feedback").String(),
	}, nil
}

func (g *Gemini) FinalSummary(ctx context.Context, candidate *model.Candidate) (*model.Summary, error) {
	record, err := json.Marshal(candidate)
	if err != nil {
		return nil, unavailable(ServiceSummary, err)
	}

	prompt := fmt.Sprintf(`Below is a finished interview record with graded answers.
Give an overall score as a percentage and a short summary of strengths and weaknesses.
Return STRICTLY JSON: {"finalScorePercent": <number 0-100>, "summary": "<paragraph>"}

Record:
%s`, record)

	text, err := g.generate(ctx, ServiceSummary, prompt)
	if err == nil && !gjson.Get(text, "finalScorePercent").Exists() {
		err = unavailable(ServiceSummary, errors.New("response has no final score"))
	}
	metrics.ServiceCall(ServiceSummary, err)
	if err != nil {
		return nil, err
	}

	return &model.Summary{
		FinalScorePercent: gjson.Get(text, "finalScorePercent").Float(),
		Summary:           gjson.Get(text, "summary").String(),
	}, nil
}

func (g *Gemini) generate(ctx context.Context, service, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.2)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		g.logger.Warn("Gemini request failed", zap.String("service", service), zap.Error(err))
		return "", unavailable(service, err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", unavailable(service, errors.New("no candidates in response"))
	}

	text := stripFence(result.Text())
	if !gjson.Valid(text) {
		g.logger.Warn("Gemini returned non-json output", zap.String("service", service), zap.String("text", text))
		return "", unavailable(service, errors.New("response is not valid json"))
	}
	return text, nil
}

// stripFence removes a ```json fence the model sometimes wraps its output in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
