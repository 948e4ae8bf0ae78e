package repo

import "interviewer/internal/utils/kv"

type Repository struct {
	Candidate ICandidate
}

// New builds the repositories over store; collection is the key holding the candidate list.
func New(store kv.Store, collection string) *Repository {
	return &Repository{
		Candidate: NewCandidateRepository(store, collection),
	}
}
