package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
)

// UserRepository provides data access methods for the User model,
// including the cascading delete that also removes likes, skips and moderation items.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// CreateOrGet returns the user for externalID, creating an inactive empty profile on first contact.
//
// Behavior:
//   - The unique index on external_id makes concurrent first contacts converge on one row.
//   - Repeated calls always return the same internal id.
func (r *UserRepository) CreateOrGet(ctx context.Context, externalID int64) (*db.User, error) {
	if externalID == 0 {
		return nil, svcErr.Validation("external id is required")
	}

	user := db.User{ExternalID: externalID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).
		Create(&user).Error
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	return r.GetByExternalID(ctx, externalID)
}

// GetByID returns ErrNotFound when the id is unknown.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, svcErr.Storage(err)
	}
	return &user, nil
}

// GetByExternalID returns ErrNotFound when the chat-platform id is unknown.
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID int64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, "external_id = ?", externalID).Error; err != nil {
		return nil, svcErr.Storage(err)
	}
	return &user, nil
}

// Save replaces every mutable profile field of an existing user.
//
// Behavior:
//   - Fails with ErrNotFound if the id does not exist (never inserts).
//   - Fails with ErrValidation on out-of-domain values or when IsActive is set on an incomplete profile.
//   - ExternalID and CreatedAt are immutable and ignored.
func (r *UserRepository) Save(ctx context.Context, user *db.User) error {
	user.Name = strings.TrimSpace(user.Name)
	if problems := user.ValidateProfile(); len(problems) > 0 {
		return svcErr.Validation("%s", strings.Join(problems, "; "))
	}

	return svcErr.Storage(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing db.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, "id = ?", user.ID).Error; err != nil {
			return err
		}
		return tx.Model(&existing).Updates(map[string]any{
			"name":        user.Name,
			"age":         user.Age,
			"gender":      user.Gender,
			"goal":        user.Goal,
			"description": user.Description,
			"photo_ref":   user.PhotoRef,
			"is_active":   user.IsActive,
		}).Error
	}))
}

// applyApprovedPhoto sets the approved photo and recomputes activation inside tx:
// the profile becomes active only if every other required field is present.
func applyApprovedPhoto(tx *gorm.DB, userID uint64, photoRef string) (*db.User, error) {
	var user db.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	user.PhotoRef = photoRef
	user.IsActive = user.Eligible()
	err := tx.Model(&user).Updates(map[string]any{
		"photo_ref": user.PhotoRef,
		"is_active": user.IsActive,
	}).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete removes the user and, in the same transaction, every like where the user
// is either endpoint, every skip edge touching the user and every moderation item the user owns.
// Returns false when the user did not exist; nothing is touched in that case.
func (r *UserRepository) Delete(ctx context.Context, id uint64) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user db.User
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Limit(1).Find(&user)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		if err := cascadeDelete(tx, user.ID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, svcErr.Storage(err)
	}
	return deleted, nil
}

// DeleteByExternalID resolves the chat-platform id and deletes like Delete.
func (r *UserRepository) DeleteByExternalID(ctx context.Context, externalID int64) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user db.User
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("external_id = ?", externalID).Limit(1).Find(&user)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		if err := cascadeDelete(tx, user.ID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, svcErr.Storage(err)
	}
	return deleted, nil
}

func cascadeDelete(tx *gorm.DB, userID uint64) error {
	if err := tx.Where("from_user_id = ? OR to_user_id = ?", userID, userID).Delete(&db.Like{}).Error; err != nil {
		return err
	}
	if err := tx.Where("viewer_id = ? OR target_id = ?", userID, userID).Delete(&db.Skip{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&db.ModerationItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", userID).Delete(&db.User{}).Error
}

// UserCounts is a snapshot of profile totals.
type UserCounts struct {
	Total     int64
	Active    int64
	WithPhoto int64
}

// Counts reports how many users exist, how many are active and how many have a photo on record.
func (r *UserRepository) Counts(ctx context.Context) (UserCounts, error) {
	var c UserCounts
	q := r.db.WithContext(ctx).Model(&db.User{})
	if err := q.Count(&c.Total).Error; err != nil {
		return UserCounts{}, svcErr.Storage(err)
	}
	if err := r.db.WithContext(ctx).Model(&db.User{}).Where("is_active = ?", true).Count(&c.Active).Error; err != nil {
		return UserCounts{}, svcErr.Storage(err)
	}
	if err := r.db.WithContext(ctx).Model(&db.User{}).Where("photo_ref <> ?", "").Count(&c.WithPhoto).Error; err != nil {
		return UserCounts{}, svcErr.Storage(err)
	}
	return c, nil
}
