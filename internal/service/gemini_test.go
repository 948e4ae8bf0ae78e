package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"interviewer/internal/config"
	"interviewer/internal/model"
)

func geminiReply(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
}

func newStubGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := NewGemini(context.Background(), config.Gemini{
		APIKey:  "test",
		Model:   "test-model",
		BaseURL: server.URL,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return g
}

func TestGeminiGenerateQuestions(t *testing.T) {
	g := newStubGemini(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		writeJSON(w, geminiReply("```json\n"+`{"questions":[
			{"id":"q1","text":"What is a hook?","difficulty":"easy"},
			{"text":"Design a cache","difficulty":"Hard"}]}`+"\n```"))
	})

	qs, err := g.GenerateQuestions(context.Background(), "Full Stack Developer", []string{"React"})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "What is a hook?", qs[0].Text)
	assert.Equal(t, model.DifficultyHard, qs[1].Difficulty)
	assert.NotEmpty(t, qs[1].ID)
}

func TestGeminiGradeAndSummary(t *testing.T) {
	g := newStubGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw, _ := json.Marshal(body)
		if strings.Contains(string(raw), "finalScorePercent") {
			writeJSON(w, geminiReply(`{"finalScorePercent": 82, "summary": "solid"}`))
			return
		}
		writeJSON(w, geminiReply(`{"score": 7.5, "feedback": "ok"}`))
	})

	grade, err := g.GradeAnswer(context.Background(), "q", "a")
	require.NoError(t, err)
	assert.Equal(t, 7.5, grade.Score)
	assert.Equal(t, "ok", grade.Feedback)

	sum, err := g.FinalSummary(context.Background(), &model.Candidate{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 82.0, sum.FinalScorePercent)
	assert.Equal(t, "solid", sum.Summary)
}

func TestGeminiFailures(t *testing.T) {
	g := newStubGemini(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":429,"message":"quota"}}`, http.StatusTooManyRequests)
	})
	_, err := g.GradeAnswer(context.Background(), "q", "a")
	assert.True(t, model.IsServiceUnavailable(err))

	g = newStubGemini(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, geminiReply("I cannot grade this"))
	})
	_, err = g.FinalSummary(context.Background(), &model.Candidate{})
	assert.True(t, model.IsServiceUnavailable(err))

	g = newStubGemini(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, geminiReply(`{"feedback":"no score"}`))
	})
	_, err = g.GradeAnswer(context.Background(), "q", "a")
	assert.True(t, model.IsServiceUnavailable(err))
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence(` {"a":1} `))
}
