package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
	"github.com/oggyb/matchmaker/internal/utils/pagination"
)

// LikeView is a Like enriched at read time with the counterpart's public fields.
// It is a projection only and is never written back.
type LikeView struct {
	db.Like
	PeerExternalID int64
	PeerName       string
	PeerAge        int
	PeerPhotoRef   string
}

// LikeRepository provides data access methods for the Like model.
// It encapsulates the mutual-match transition, the only cross-session write race in the system.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Add records from -> to and detects a mutual match in one transaction.
//
// Behavior:
//   - Both user rows are locked in id order first, so Add(A,B) and Add(B,A)
//     racing from two sessions serialize instead of each missing the other leg.
//   - If (from, to) already exists it is returned unchanged with created = false.
//   - Otherwise the like is inserted; when (to, from) exists both legs are flipped
//     to mutual by a single UPDATE inside the same transaction.
//   - Returns ErrNotFound if either user does not exist.
//
// Example:
//
//	like, created, err := repo.Add(ctx, 1, 2)
//	fresh := created && like.IsMutual // the pair just became a match
func (r *LikeRepository) Add(ctx context.Context, from, to uint64) (*db.Like, bool, error) {
	var (
		like    db.Like
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, from, to); err != nil {
			return err
		}

		res := tx.Where("from_user_id = ? AND to_user_id = ?", from, to).Limit(1).Find(&like)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		like = db.Like{FromUserID: from, ToUserID: to}
		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost an insert race on the unique pair; report the winner's row
			return tx.Where("from_user_id = ? AND to_user_id = ?", from, to).First(&like).Error
		}
		created = true

		var reverse db.Like
		res = tx.Where("from_user_id = ? AND to_user_id = ?", to, from).Limit(1).Find(&reverse)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		if err := tx.Model(&db.Like{}).
			Where("id IN ?", []uint64{like.ID, reverse.ID}).
			Update("is_mutual", true).Error; err != nil {
			return err
		}
		like.IsMutual = true
		return nil
	})
	if err != nil {
		return nil, false, svcErr.Storage(err)
	}
	return &like, created, nil
}

// HasLiked checks whether from has a like edge towards to.
func (r *LikeRepository) HasLiked(ctx context.Context, from, to uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("from_user_id = ? AND to_user_id = ?", from, to).
		Count(&count).Error
	return count > 0, svcErr.Storage(err)
}

// ReceivedBy returns every like pointing at userID, most recent first,
// each enriched with the liker's name and age.
func (r *LikeRepository) ReceivedBy(ctx context.Context, userID uint64) ([]LikeView, error) {
	var views []LikeView
	err := r.receivedQuery(ctx, userID).
		Order("l.created_at DESC, l.id DESC").
		Scan(&views).Error
	return views, svcErr.Storage(err)
}

// ListLikers pages through likes received by recipientID.
//
// Behavior:
//   - Likers the recipient has skipped are hidden.
//   - onlyNew additionally hides pairs that are already mutual.
//   - Ordered by created_at DESC, id DESC; cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.ListLikers(ctx, 42, nil, 20, false) // first 20 people who liked user 42
func (r *LikeRepository) ListLikers(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
	onlyNew bool,
) ([]LikeView, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, svcErr.Validation("%v", err)
	}
	if limit <= 0 {
		limit = 20
	}

	query := r.receivedQuery(ctx, recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM skips s
				WHERE s.viewer_id = ?
				  AND s.target_id = l.from_user_id
			)`, recipientID).
		Order("l.created_at DESC, l.id DESC").
		Limit(limit + 1)
	if onlyNew {
		query = query.Where("l.is_mutual = ?", false)
	}

	// apply cursor
	if !cursor.IsZero() {
		ts := time.Unix(0, cursor.CreatedNanos).UTC()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var views []LikeView
	if err := query.Scan(&views).Error; err != nil {
		return nil, nil, svcErr.Storage(err)
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(views) > limit {
		last := views[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:           last.ID,
			CreatedNanos: last.CreatedAt.UnixNano(),
		})
		nextToken = &token
		views = views[:limit]
	}

	return views, nextToken, nil
}

// Matches lists userID's mutual pairs, most recent first, enriched with the other user's fields.
func (r *LikeRepository) Matches(ctx context.Context, userID uint64) ([]LikeView, error) {
	var views []LikeView
	err := r.db.WithContext(ctx).
		Table("likes l").
		Select("l.*, u.external_id AS peer_external_id, u.name AS peer_name, u.age AS peer_age, u.photo_ref AS peer_photo_ref").
		Joins("JOIN users u ON u.id = l.to_user_id").
		Where("l.from_user_id = ? AND l.is_mutual = ?", userID, true).
		Order("l.created_at DESC, l.id DESC").
		Scan(&views).Error
	return views, svcErr.Storage(err)
}

// Counts returns the number of like edges and how many of them are mutual.
func (r *LikeRepository) Counts(ctx context.Context) (total, mutual int64, err error) {
	if err = r.db.WithContext(ctx).Model(&db.Like{}).Count(&total).Error; err != nil {
		return 0, 0, svcErr.Storage(err)
	}
	if err = r.db.WithContext(ctx).Model(&db.Like{}).Where("is_mutual = ?", true).Count(&mutual).Error; err != nil {
		return 0, 0, svcErr.Storage(err)
	}
	return total, mutual, nil
}

func (r *LikeRepository) receivedQuery(ctx context.Context, userID uint64) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("likes l").
		Select("l.*, u.external_id AS peer_external_id, u.name AS peer_name, u.age AS peer_age, u.photo_ref AS peer_photo_ref").
		Joins("JOIN users u ON u.id = l.from_user_id").
		Where("l.to_user_id = ?", userID)
}

// lockPair takes row locks on both users in ascending id order.
// Returns ErrRecordNotFound if either user is missing.
func lockPair(tx *gorm.DB, a, b uint64) error {
	ids := []uint64{a, b}
	if a > b {
		ids = []uint64{b, a}
	}
	var users []db.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id IN ?", ids).
		Order("id").
		Find(&users).Error; err != nil {
		return err
	}
	if len(users) != 2 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
