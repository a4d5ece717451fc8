package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
)

// CandidateQuery tunes FindCandidate.
type CandidateQuery struct {
	// MatchGender restricts results to the viewer's complementary gender
	// (no restriction when the viewer's gender is unset).
	MatchGender bool
}

// CandidateRepository reads the candidate stream of a viewer. It holds no state:
// every call is a single query against the current committed rows.
type CandidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(database *gorm.DB) *CandidateRepository {
	return &CandidateRepository{db: database}
}

// FindCandidate returns the next profile to show viewer, or nil when none is eligible.
//
// Behavior:
//   - Only active users other than the viewer are considered.
//   - Users the viewer already liked or skipped are excluded.
//   - Same-goal candidates come first; within a goal tier, newest profile first
//     (created_at DESC, id DESC for a total order).
//
// Example:
//
//	repo.FindCandidate(ctx, viewer, CandidateQuery{MatchGender: true})
func (r *CandidateRepository) FindCandidate(ctx context.Context, viewer *db.User, q CandidateQuery) (*db.User, error) {
	query := r.db.WithContext(ctx).
		Table("users u").
		Where("u.is_active = ? AND u.id <> ?", true, viewer.ID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM likes l
				WHERE l.from_user_id = ?
				  AND l.to_user_id = u.id
			)`, viewer.ID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM skips s
				WHERE s.viewer_id = ?
				  AND s.target_id = u.id
			)`, viewer.ID)

	if q.MatchGender {
		if opposite := viewer.Gender.Opposite(); opposite != db.GenderUnset {
			query = query.Where("u.gender = ?", opposite)
		}
	}

	var candidates []db.User
	err := query.
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN u.goal = ? THEN 0 ELSE 1 END, u.created_at DESC, u.id DESC",
			Vars:               []any{viewer.Goal},
			WithoutParentheses: true,
		}}).
		Limit(1).
		Find(&candidates).Error
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

// CountRemaining counts the candidates still eligible for viewer, ignoring gender.
func (r *CandidateRepository) CountRemaining(ctx context.Context, viewer *db.User) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("users u").
		Where("u.is_active = ? AND u.id <> ?", true, viewer.ID).
		Where("NOT EXISTS (SELECT 1 FROM likes l WHERE l.from_user_id = ? AND l.to_user_id = u.id)", viewer.ID).
		Where("NOT EXISTS (SELECT 1 FROM skips s WHERE s.viewer_id = ? AND s.target_id = u.id)", viewer.ID).
		Count(&count).Error
	return count, svcErr.Storage(err)
}
