// Package matching holds the browse-side core: the candidate selector and the
// like/match engine. Both are stateless over the repositories; every call reads
// committed rows.
package matching

import (
	"context"

	"github.com/oggyb/matchmaker/internal/db"
	"github.com/oggyb/matchmaker/internal/repository"
)

// Selector picks the next profile a viewer has not acted on yet.
type Selector struct {
	users      *repository.UserRepository
	candidates *repository.CandidateRepository
}

func NewSelector(users *repository.UserRepository, candidates *repository.CandidateRepository) *Selector {
	return &Selector{users: users, candidates: candidates}
}

// Next returns the top candidate for viewerID under the complementary-gender filter,
// or nil when nothing is eligible or the viewer is not active.
func (s *Selector) Next(ctx context.Context, viewerID uint64) (*db.User, error) {
	return s.find(ctx, viewerID, repository.CandidateQuery{MatchGender: true})
}

// Any is the looser fallback: same exclusions and ordering, no gender filter.
func (s *Selector) Any(ctx context.Context, viewerID uint64) (*db.User, error) {
	return s.find(ctx, viewerID, repository.CandidateQuery{})
}

// NextOrAny tries Next first and falls back to Any once the filtered stream is exhausted.
// fallback reports whether the returned candidate came from the looser query.
func (s *Selector) NextOrAny(ctx context.Context, viewerID uint64) (candidate *db.User, fallback bool, err error) {
	candidate, err = s.Next(ctx, viewerID)
	if err != nil || candidate != nil {
		return candidate, false, err
	}
	candidate, err = s.Any(ctx, viewerID)
	return candidate, candidate != nil, err
}

func (s *Selector) find(ctx context.Context, viewerID uint64, q repository.CandidateQuery) (*db.User, error) {
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsActive {
		return nil, nil
	}
	return s.candidates.FindCandidate(ctx, viewer, q)
}
