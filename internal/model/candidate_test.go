package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDifficultyBudget(t *testing.T) {
	assert.Equal(t, 20, DifficultyEasy.Budget())
	assert.Equal(t, 60, DifficultyMedium.Budget())
	assert.Equal(t, 120, DifficultyHard.Budget())
	assert.Equal(t, 0, Difficulty("extreme").Budget())
	assert.False(t, Difficulty("extreme").Valid())
	assert.True(t, DifficultyHard.Valid())
}

func TestMissingFieldsAndApplyProfile(t *testing.T) {
	c := &Candidate{Name: "Ada", Email: "  "}
	assert.Equal(t, []string{"email", "phone"}, c.MissingFields())

	c.ApplyProfile(Profile{Email: "ada@example.com", Phone: " 555 "})
	assert.Empty(t, c.MissingFields())
	assert.Equal(t, "Ada", c.Name)
	assert.Equal(t, "555", c.Phone)
}

func TestCloneIsDeep(t *testing.T) {
	score := 7.0
	c := &Candidate{
		ID:        "c1",
		Questions: []Question{{ID: "q1", Text: "a", Difficulty: DifficultyEasy}},
		Answers:   []Answer{{QuestionID: "q1", Score: &score}},
		Timer:     &TimerSnapshot{QuestionIndex: 1, Remaining: 5, LastUpdatedAt: time.Now()},
	}

	cp := c.Clone()
	*cp.Answers[0].Score = 1
	cp.Timer.Remaining = 0
	cp.Questions[0].Text = "changed"

	assert.Equal(t, 7.0, *c.Answers[0].Score)
	assert.Equal(t, 5, c.Timer.Remaining)
	assert.Equal(t, "a", c.Questions[0].Text)
	assert.Nil(t, (*Candidate)(nil).Clone())
}

func TestCloneKeepsEmptySlices(t *testing.T) {
	cp := (&Candidate{ID: "c1", Questions: []Question{}, Answers: []Answer{}}).Clone()
	assert.NotNil(t, cp.Questions)
	assert.NotNil(t, cp.Answers)

	cp = (&Candidate{ID: "c2"}).Clone()
	assert.Nil(t, cp.Questions)
	assert.Nil(t, cp.Answers)
}

func TestFindResumable(t *testing.T) {
	score := 80.0
	fresh := &Candidate{ID: "fresh"}
	done := &Candidate{ID: "done", QuestionsLength: 6, Answers: make([]Answer, 6), FinalScore: &score}
	partial := &Candidate{ID: "partial", QuestionsLength: 6, Answers: make([]Answer, 2)}

	got := FindResumable([]*Candidate{fresh, done, partial})
	require.NotNil(t, got)
	assert.Equal(t, "partial", got.ID)

	assert.Nil(t, FindResumable([]*Candidate{fresh, done}))
}

func TestIsFinished(t *testing.T) {
	assert.False(t, (&Candidate{Stage: StageFinalizing}).IsFinished())
	assert.True(t, (&Candidate{Stage: StageCompleted}).IsFinished())
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("boom")

	svc := &ServiceUnavailableError{Service: "grading", Err: cause}
	assert.True(t, IsServiceUnavailable(svc))
	assert.ErrorIs(t, svc, cause)
	assert.Equal(t, "grading unavailable: boom", svc.Error())

	p := &PersistenceError{Op: "save", Err: cause}
	assert.True(t, IsPersistence(p))
	assert.ErrorIs(t, p, cause)

	v := &ValidationError{Msg: "expected 6 questions, got 5"}
	assert.True(t, IsValidation(v))
	assert.False(t, IsValidation(cause))
}
