package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
)

// SkipRepository stores "not interested" edges. A skip excludes the target from
// the viewer's candidate stream exactly like a like does, but never notifies anyone.
type SkipRepository struct {
	db *gorm.DB
}

func NewSkipRepository(database *gorm.DB) *SkipRepository {
	return &SkipRepository{db: database}
}

// Add inserts (viewer, target) once. Composite PK ensures a single row per pair;
// a repeated skip is a no-op reported as created = false.
func (r *SkipRepository) Add(ctx context.Context, viewerID, targetID uint64) (bool, error) {
	skip := db.Skip{ViewerID: viewerID, TargetID: targetID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "viewer_id"}, {Name: "target_id"}},
			DoNothing: true,
		}).
		Create(&skip)
	if res.Error != nil {
		return false, svcErr.Storage(res.Error)
	}
	return res.RowsAffected > 0, nil
}
