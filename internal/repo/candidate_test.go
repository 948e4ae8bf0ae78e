package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	re "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewer/internal/model"
	"interviewer/internal/utils/kv"
)

type failingStore struct {
	kv.Store
	failSet bool
	failGet bool
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errors.New("read refused")
	}
	return f.Store.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errors.New("write refused")
	}
	return f.Store.Set(ctx, key, value)
}

func sampleCandidates() []*model.Candidate {
	score := 82.0
	summary := "solid"
	feedback := "good"
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []*model.Candidate{
		{
			ID:              "c1",
			Name:            "Ada",
			Email:           "ada@example.com",
			Phone:           "555",
			Stage:           model.StageCompleted,
			Questions:       []model.Question{{ID: "q1", Text: "What is a closure?", Difficulty: model.DifficultyEasy}},
			QuestionsLength: 1,
			Answers: []model.Answer{{
				QuestionID: "q1", QuestionText: "What is a closure?", Difficulty: model.DifficultyEasy,
				ResponseText: "a function with its scope", TimeTakenSeconds: 12, Score: &score, Feedback: &feedback,
			}},
			CurrentIndex: 1,
			FinalScore:   &score,
			Summary:      &summary,
			CreatedAt:    created,
		},
		{
			ID:              "c2",
			Stage:           model.StageInProgress,
			Questions:       []model.Question{{ID: "q1", Text: "x", Difficulty: model.DifficultyHard}},
			QuestionsLength: 1,
			Answers:         []model.Answer{},
			Timer:           &model.TimerSnapshot{QuestionIndex: 0, Remaining: 5, LastUpdatedAt: created},
			Paused:          true,
			CreatedAt:       created.Add(time.Hour),
		},
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := re.NewClient(&re.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	want := sampleCandidates()

	require.NoError(t, NewCandidateRepository(kv.NewRedis(client), "").Save(ctx, want))

	// a fresh repository sees only what reached redis
	got, err := NewCandidateRepository(kv.NewRedis(client), "").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, mr.Exists(DefaultCollection))
}

func TestRoundTripKeepsEmptyCollections(t *testing.T) {
	ctx := context.Background()
	store := kv.Memory()
	want := []*model.Candidate{{
		ID:        "c1",
		Questions: []model.Question{},
		Answers:   []model.Answer{},
		CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}}

	require.NoError(t, NewCandidateRepository(store, "").Save(ctx, want))

	got, err := NewCandidateRepository(store, "").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	require.Len(t, got, 1)
	assert.NotNil(t, got[0].Questions)

	raw, err := store.Get(ctx, DefaultCollection)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"questions":[]`)
	assert.NotContains(t, string(raw), `"questions":null`)
}

func TestLoadEmptyStore(t *testing.T) {
	got, err := NewCandidateRepository(kv.Memory(), "").Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadCorruptCollection(t *testing.T) {
	store := kv.Memory()
	require.NoError(t, store.Set(context.Background(), "candidates", []byte("{not json")))

	_, err := NewCandidateRepository(store, "candidates").Load(context.Background())
	assert.True(t, model.IsPersistence(err))
}

func TestCreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	r := NewCandidateRepository(kv.Memory(), "")

	require.NoError(t, r.Create(ctx, &model.Candidate{ID: "c1", Name: "Ada"}))
	assert.Error(t, r.Create(ctx, &model.Candidate{ID: "c1"}))

	c, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.NotNil(t, c.Questions)
	assert.NotNil(t, c.Answers)

	// callers get copies
	c.Name = "mutated"
	c2, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", c2.Name)

	updated, err := r.Update(ctx, "c1", func(c *model.Candidate) error {
		c.Email = "ada@example.com"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", updated.Email)

	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = r.Update(ctx, "missing", func(*model.Candidate) error { return nil })
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateApplyErrorLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	r := NewCandidateRepository(kv.Memory(), "")
	require.NoError(t, r.Create(ctx, &model.Candidate{ID: "c1", Name: "Ada"}))

	boom := errors.New("rejected")
	_, err := r.Update(ctx, "c1", func(c *model.Candidate) error {
		c.Name = "half-written"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.Name)
}

func TestUpdateKeepsInMemoryStateWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: kv.Memory()}
	r := NewCandidateRepository(store, "")
	require.NoError(t, r.Create(ctx, &model.Candidate{ID: "c1"}))

	store.failSet = true
	updated, err := r.Update(ctx, "c1", func(c *model.Candidate) error {
		c.Name = "Ada"
		return nil
	})
	assert.True(t, model.IsPersistence(err))
	require.NotNil(t, updated)
	assert.Equal(t, "Ada", updated.Name)

	c, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.Name)

	// next successful write flushes the pending change
	store.failSet = false
	_, err = r.Update(ctx, "c1", func(c *model.Candidate) error { return nil })
	require.NoError(t, err)
	fresh, err := NewCandidateRepository(store.Store, "").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", fresh[0].Name)
}

func TestLoadFailureIsPersistenceError(t *testing.T) {
	r := NewCandidateRepository(&failingStore{Store: kv.Memory(), failGet: true}, "")
	_, err := r.List(context.Background())
	assert.True(t, model.IsPersistence(err))
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	r := NewCandidateRepository(kv.Memory(), "")
	require.NoError(t, r.Create(ctx, &model.Candidate{ID: "c1"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Update(ctx, "c1", func(c *model.Candidate) error {
				c.CurrentIndex++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := r.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 50, c.CurrentIndex)
}
