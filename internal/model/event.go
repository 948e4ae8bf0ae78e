package model

import "time"

type EventType string

const (
	EventQuestionStarted  EventType = "question_started"
	EventTick             EventType = "tick"
	EventPaused           EventType = "paused"
	EventResumed          EventType = "resumed"
	EventAnswerSubmitted  EventType = "answer_submitted"
	EventAnswerGraded     EventType = "answer_graded"
	EventGradingFailed    EventType = "grading_failed"
	EventSessionCompleted EventType = "session_completed"
	EventSummaryFailed    EventType = "summary_failed"
	EventPersistenceError EventType = "persistence_error"
)

// Event is a user-facing notification about the active session.
type Event struct {
	Type          EventType `json:"type"`
	CandidateID   string    `json:"candidateId"`
	QuestionIndex int       `json:"questionIndex"`
	Remaining     int       `json:"remaining,omitempty"`
	Message       string    `json:"message,omitempty"`
	Score         *float64  `json:"score,omitempty"`
	FinalScore    *float64  `json:"finalScore,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
