package model

import (
	"strings"
	"time"
)

// Difficulty of a generated question. It alone determines the time budget.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// AutoSubmittedText is stored as the response when a timed out question had no text entered.
const AutoSubmittedText = "[AUTO SUBMITTED]"

var budgets = map[Difficulty]int{
	DifficultyEasy:   20,
	DifficultyMedium: 60,
	DifficultyHard:   120,
}

// Budget returns the time allowance in seconds, or 0 for an unknown difficulty.
func (d Difficulty) Budget() int {
	return budgets[d]
}

func (d Difficulty) Valid() bool {
	_, ok := budgets[d]
	return ok
}

// Stage is the persisted lifecycle position of a candidate.
type Stage string

const (
	StageProfileIncomplete Stage = "profile_incomplete"
	StageReady             Stage = "ready"
	StageInProgress        Stage = "in_progress"
	StageFinalizing        Stage = "finalizing"
	StageCompleted         Stage = "completed"
)

type Question struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Difficulty Difficulty `json:"difficulty"`
}

type Answer struct {
	QuestionID       string     `json:"questionId"`
	QuestionText     string     `json:"questionText"`
	Difficulty       Difficulty `json:"difficulty"`
	ResponseText     string     `json:"responseText"`
	TimeTakenSeconds int        `json:"timeTakenSeconds"`
	AutoSubmitted    bool       `json:"autoSubmitted"`
	Score            *float64   `json:"score"`
	Feedback         *string    `json:"feedback"`
}

// TimerSnapshot is the persisted countdown of the question being answered.
type TimerSnapshot struct {
	QuestionIndex int       `json:"questionIndex"`
	Remaining     int       `json:"remaining"`
	LastUpdatedAt time.Time `json:"lastUpdated"`
}

type Candidate struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Email           string         `json:"email"`
	Phone           string         `json:"phone"`
	ResumeText      string         `json:"resumeText,omitempty"`
	Stage           Stage          `json:"stage"`
	Questions       []Question     `json:"questions"`
	QuestionsLength int            `json:"questionsLength"`
	Answers         []Answer       `json:"answers"`
	CurrentIndex    int            `json:"currentIndex"`
	Timer           *TimerSnapshot `json:"timer"`
	Paused          bool           `json:"paused"`
	FinalScore      *float64       `json:"finalScore"`
	Summary         *string        `json:"summary"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// Profile holds the contact fields extracted from a resume or typed into the correction form.
type Profile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	ResumeText string `json:"resumeText,omitempty"`
}

// MissingFields lists the profile fields that are still blank.
func (c *Candidate) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	return missing
}

// ApplyProfile overwrites the profile fields that are set in p.
func (c *Candidate) ApplyProfile(p Profile) {
	if v := strings.TrimSpace(p.Name); v != "" {
		c.Name = v
	}
	if v := strings.TrimSpace(p.Email); v != "" {
		c.Email = v
	}
	if v := strings.TrimSpace(p.Phone); v != "" {
		c.Phone = v
	}
	if p.ResumeText != "" {
		c.ResumeText = p.ResumeText
	}
}

// IsFinished reports whether the session reached a terminal state, scored or not.
func (c *Candidate) IsFinished() bool {
	return c.FinalScore != nil || c.Stage == StageCompleted
}

// IsResumable matches the unfinished interview offered for resumption at start up.
func (c *Candidate) IsResumable() bool {
	return len(c.Answers) < c.QuestionsLength && c.FinalScore == nil
}

// Clone returns a deep copy so callers never share slices or pointers with the store.
func (c *Candidate) Clone() *Candidate {
	if c == nil {
		return nil
	}
	out := *c
	if c.Questions != nil {
		out.Questions = make([]Question, len(c.Questions))
		copy(out.Questions, c.Questions)
	}
	if c.Answers != nil {
		out.Answers = make([]Answer, len(c.Answers))
		for i, a := range c.Answers {
			out.Answers[i] = a.clone()
		}
	}
	if c.Timer != nil {
		t := *c.Timer
		out.Timer = &t
	}
	out.FinalScore = clonePtr(c.FinalScore)
	out.Summary = clonePtr(c.Summary)
	return &out
}

func (a Answer) clone() Answer {
	a.Score = clonePtr(a.Score)
	a.Feedback = clonePtr(a.Feedback)
	return a
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// FindResumable returns the first unfinished candidate in collection order.
func FindResumable(candidates []*Candidate) *Candidate {
	for _, c := range candidates {
		if c.IsResumable() {
			return c
		}
	}
	return nil
}

// Grade is the grading service verdict for one answer.
type Grade struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Summary is the final verdict over a complete candidate record.
type Summary struct {
	FinalScorePercent float64 `json:"finalScorePercent"`
	Summary           string  `json:"summary"`
}
