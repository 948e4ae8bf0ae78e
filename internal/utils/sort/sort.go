package sort

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"interviewer/internal/model"
)

const (
	StatusAll        = "all"
	StatusCompleted  = "completed"
	StatusInProgress = "inProgress"

	SortFinalScore = "finalScore"
	SortName       = "name"
	SortCreatedAt  = "createdAt"
)

// ErrInvalidQuery marks an unknown status filter or sort column.
var ErrInvalidQuery = errors.New("invalid dashboard query")

var (
	columns  = []string{SortFinalScore, SortName, SortCreatedAt}
	statuses = []string{StatusAll, StatusCompleted, StatusInProgress}
)

// Query is the dashboard view over the candidate roster.
type Query struct {
	Status string `form:"status"`
	Search string `form:"q"`
	Sort   string `form:"sort"`
}

func Contains[T comparable](s []T, e T) bool {
	for _, v := range s {
		if v == e {
			return true
		}
	}
	return false
}

// GetSort returns the ordering for column: score descending with absent scores as 0,
// name ascending, creation time newest first.
func GetSort(column string) (func(a, b *model.Candidate) int, error) {
	if !Contains(columns, column) {
		return nil, errors.New("column not found")
	}

	switch column {
	case SortName:
		return func(a, b *model.Candidate) int {
			return strings.Compare(a.Name, b.Name)
		}, nil
	case SortCreatedAt:
		return func(a, b *model.Candidate) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		}, nil
	default:
		return func(a, b *model.Candidate) int {
			return cmp.Compare(scoreOf(b), scoreOf(a))
		}, nil
	}
}

// Apply filters and orders candidates into a new slice; the input is left untouched.
func Apply(candidates []*model.Candidate, q Query) ([]*model.Candidate, error) {
	if q.Status == "" {
		q.Status = StatusAll
	}
	if q.Sort == "" {
		q.Sort = SortFinalScore
	}
	if !Contains(statuses, q.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidQuery, q.Status)
	}
	order, err := GetSort(q.Sort)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown sort %q: %v", ErrInvalidQuery, q.Sort, err)
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]*model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		switch {
		case q.Status == StatusCompleted && !c.IsFinished():
			continue
		case q.Status == StatusInProgress && c.IsFinished():
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Email), search) {
			continue
		}
		out = append(out, c)
	}

	slices.SortStableFunc(out, order)
	return out, nil
}

func scoreOf(c *model.Candidate) float64 {
	if c.FinalScore == nil {
		return 0
	}
	return *c.FinalScore
}
