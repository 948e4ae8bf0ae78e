package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"interviewer/internal/model"
	"interviewer/internal/utils/kv"
)

const DefaultCollection = "candidates"

type ICandidate interface {
	Load(ctx context.Context) ([]*model.Candidate, error)
	Save(ctx context.Context, candidates []*model.Candidate) error
	List(ctx context.Context) ([]*model.Candidate, error)
	Get(ctx context.Context, id string) (*model.Candidate, error)
	Create(ctx context.Context, candidate *model.Candidate) error
	Update(ctx context.Context, id string, apply func(c *model.Candidate) error) (*model.Candidate, error)
}

// KVCandidate keeps the whole collection under one key and rewrites it on every save.
// The in-memory copy is the source of truth; a failed save leaves it ahead of the store
// until the next successful write.
type KVCandidate struct {
	store      kv.Store
	collection string

	mu     sync.Mutex
	loaded bool
	items  []*model.Candidate
}

func NewCandidateRepository(store kv.Store, collection string) *KVCandidate {
	if collection == "" {
		collection = DefaultCollection
	}
	return &KVCandidate{store: store, collection: collection}
}

// Load reads the collection from the store, replacing the in-memory copy.
func (r *KVCandidate) Load(ctx context.Context) ([]*model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return cloneAll(r.items), nil
}

// Save replaces the collection with candidates and writes it out.
func (r *KVCandidate) Save(ctx context.Context, candidates []*model.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = cloneAll(candidates)
	r.loaded = true
	return r.persist(ctx)
}

func (r *KVCandidate) List(ctx context.Context) ([]*model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return cloneAll(r.items), nil
}

func (r *KVCandidate) Get(ctx context.Context, id string) (*model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	i := r.indexOf(id)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	return r.items[i].Clone(), nil
}

func (r *KVCandidate) Create(ctx context.Context, candidate *model.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return err
	}
	if r.indexOf(candidate.ID) >= 0 {
		return fmt.Errorf("candidate %s already exists", candidate.ID)
	}
	c := candidate.Clone()
	if c.Questions == nil {
		c.Questions = []model.Question{}
	}
	if c.Answers == nil {
		c.Answers = []model.Answer{}
	}
	r.items = append(r.items, c)
	return r.persist(ctx)
}

// Update is the single serialized mutation path: read the record, apply, replace, persist.
// When apply fails nothing changes. When persisting fails the change is kept in memory and a
// PersistenceError is returned together with the updated record.
func (r *KVCandidate) Update(ctx context.Context, id string, apply func(c *model.Candidate) error) (*model.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	i := r.indexOf(id)
	if i < 0 {
		return nil, model.ErrNotFound
	}

	next := r.items[i].Clone()
	if err := apply(next); err != nil {
		return nil, err
	}
	r.items[i] = next

	return next.Clone(), r.persist(ctx)
}

func (r *KVCandidate) ensureLoaded(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	return r.load(ctx)
}

func (r *KVCandidate) load(ctx context.Context) error {
	raw, err := r.store.Get(ctx, r.collection)
	if err != nil {
		return &model.PersistenceError{Op: "load", Err: err}
	}

	var items []*model.Candidate
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return &model.PersistenceError{Op: "load", Err: fmt.Errorf("decode %s: %w", r.collection, err)}
		}
	}
	r.items = items
	r.loaded = true
	return nil
}

func (r *KVCandidate) persist(ctx context.Context) error {
	items := r.items
	if items == nil {
		items = []*model.Candidate{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return &model.PersistenceError{Op: "save", Err: err}
	}
	if err := r.store.Set(ctx, r.collection, raw); err != nil {
		return &model.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func (r *KVCandidate) indexOf(id string) int {
	for i, c := range r.items {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(items []*model.Candidate) []*model.Candidate {
	out := make([]*model.Candidate, len(items))
	for i, c := range items {
		out[i] = c.Clone()
	}
	return out
}
