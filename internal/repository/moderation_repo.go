package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
)

// ModerationStats is the per-status breakdown of all moderation items.
type ModerationStats struct {
	Total    int64
	Pending  int64
	Approved int64
	Rejected int64
}

// ModerationRepository provides data access for photo submissions.
// It is the storage half of the moderation queue: FIFO head lookup and
// the one-way pending -> approved|rejected transition.
type ModerationRepository struct {
	db *gorm.DB
}

// NewModerationRepository creates a new repository bound to the given DB connection.
func NewModerationRepository(database *gorm.DB) *ModerationRepository {
	return &ModerationRepository{db: database}
}

// Add enqueues a pending item for (userID, photoRef).
//
// Behavior:
//   - If an identical pending item exists, it is returned with created = false.
//   - Decided items for the same photo do not block a new submission.
//   - Returns ErrNotFound when the user does not exist.
func (r *ModerationRepository) Add(ctx context.Context, userID uint64, photoRef string) (*db.ModerationItem, bool, error) {
	if photoRef == "" {
		return nil, false, svcErr.Validation("photo reference is required")
	}

	var (
		item    db.ModerationItem
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner db.User
		if err := tx.Select("id").First(&owner, "id = ?", userID).Error; err != nil {
			return err
		}

		pending := true
		item = db.ModerationItem{
			UserID:   userID,
			PhotoRef: photoRef,
			Pending:  &pending,
			Status:   db.ModerationPending,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "photo_ref"}, {Name: "pending"}},
			DoNothing: true,
		}).Create(&item)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			created = true
			return nil
		}
		return tx.Where("user_id = ? AND photo_ref = ? AND status = ?", userID, photoRef, db.ModerationPending).
			First(&item).Error
	})
	if err != nil {
		return nil, false, svcErr.Storage(err)
	}
	return &item, created, nil
}

// NextPending returns the oldest pending item system-wide, or nil if the queue is empty.
// The item is neither removed nor locked.
func (r *ModerationRepository) NextPending(ctx context.Context) (*db.ModerationItem, error) {
	var items []db.ModerationItem
	err := r.db.WithContext(ctx).
		Where("status = ?", db.ModerationPending).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// SetStatus decides the most recent pending item matching (userID, photoRef).
//
// Behavior:
//   - status must be approved or rejected.
//   - On approval the photo is applied to the owner and activation recomputed in the
//     same transaction; the refreshed owner is returned (nil on rejection).
//   - If any write fails nothing is committed and the item stays pending, so the call can be retried.
//   - Returns a nil item (not an error) when there is nothing pending to decide:
//     already decided, or never submitted.
func (r *ModerationRepository) SetStatus(
	ctx context.Context,
	userID uint64,
	photoRef string,
	status db.ModerationStatus,
) (*db.ModerationItem, *db.User, error) {
	return r.decide(ctx, status, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ? AND photo_ref = ? AND status = ?", userID, photoRef, db.ModerationPending).
			Order("created_at DESC, id DESC")
	})
}

// DecideByID decides a specific pending item. Same nil-means-nothing-to-do contract as SetStatus.
func (r *ModerationRepository) DecideByID(ctx context.Context, id uint64, status db.ModerationStatus) (*db.ModerationItem, *db.User, error) {
	return r.decide(ctx, status, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("id = ? AND status = ?", id, db.ModerationPending)
	})
}

func (r *ModerationRepository) decide(
	ctx context.Context,
	status db.ModerationStatus,
	scope func(tx *gorm.DB) *gorm.DB,
) (*db.ModerationItem, *db.User, error) {
	if !status.Terminal() {
		return nil, nil, svcErr.Validation("moderation status must be approved or rejected, got %q", status)
	}

	var (
		item  db.ModerationItem
		owner *db.User
		found bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := scope(tx.Clauses(clause.Locking{Strength: "UPDATE"})).Limit(1).Find(&item)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}

		decidedAt := tx.Config.NowFunc()
		res = tx.Model(&db.ModerationItem{}).
			Where("id = ? AND status = ?", item.ID, db.ModerationPending).
			Updates(map[string]any{
				"status":     status,
				"pending":    nil,
				"decided_at": decidedAt,
			})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		item.Status = status
		item.Pending = nil
		item.DecidedAt = &decidedAt

		if status == db.ModerationApproved {
			var err error
			if owner, err = applyApprovedPhoto(tx, item.UserID, item.PhotoRef); err != nil {
				return err
			}
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, nil, svcErr.Storage(err)
	}
	if !found {
		return nil, nil, nil
	}
	return &item, owner, nil
}

// LatestStatus returns the status of userID's most recent submission.
// ok is false when the user never submitted a photo.
func (r *ModerationRepository) LatestStatus(ctx context.Context, userID uint64) (db.ModerationStatus, bool, error) {
	item, err := r.latest(ctx, "user_id = ?", userID)
	if err != nil || item == nil {
		return "", false, err
	}
	return item.Status, true, nil
}

// GetByID returns ErrNotFound for unknown ids.
func (r *ModerationRepository) GetByID(ctx context.Context, id uint64) (*db.ModerationItem, error) {
	var item db.ModerationItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, svcErr.Storage(err)
	}
	return &item, nil
}

// PendingByUser returns the user's most recent pending item, or nil.
func (r *ModerationRepository) PendingByUser(ctx context.Context, userID uint64) (*db.ModerationItem, error) {
	return r.latest(ctx, "user_id = ? AND status = ?", userID, db.ModerationPending)
}

// ByUserAndPhoto returns the most recent item for (userID, photoRef) in any status, or nil.
func (r *ModerationRepository) ByUserAndPhoto(ctx context.Context, userID uint64, photoRef string) (*db.ModerationItem, error) {
	return r.latest(ctx, "user_id = ? AND photo_ref = ?", userID, photoRef)
}

// Stats counts items per status.
func (r *ModerationRepository) Stats(ctx context.Context) (ModerationStats, error) {
	var rows []struct {
		Status db.ModerationStatus
		N      int64
	}
	err := r.db.WithContext(ctx).
		Model(&db.ModerationItem{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return ModerationStats{}, svcErr.Storage(err)
	}

	var stats ModerationStats
	for _, row := range rows {
		stats.Total += row.N
		switch row.Status {
		case db.ModerationPending:
			stats.Pending = row.N
		case db.ModerationApproved:
			stats.Approved = row.N
		case db.ModerationRejected:
			stats.Rejected = row.N
		}
	}
	return stats, nil
}

// PurgeDecided deletes approved/rejected items created before cutoff.
// Pending items are never purged.
func (r *ModerationRepository) PurgeDecided(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status <> ? AND created_at < ?", db.ModerationPending, cutoff).
		Delete(&db.ModerationItem{})
	if res.Error != nil {
		return 0, svcErr.Storage(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *ModerationRepository) latest(ctx context.Context, query string, args ...any) (*db.ModerationItem, error) {
	var items []db.ModerationItem
	err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}
