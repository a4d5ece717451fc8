package db

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinAge            = 18
	MaxAge            = 99
	MinNameLength     = 2
	MaxNameLength     = 64
	MaxDescriptionLen = 500
)

type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the two binary categories.
func (g Gender) Valid() bool { return g == GenderMale || g == GenderFemale }

// Opposite returns the complementary category, or GenderUnset when g is unset.
func (g Gender) Opposite() Gender {
	switch g {
	case GenderMale:
		return GenderFemale
	case GenderFemale:
		return GenderMale
	}
	return GenderUnset
}

type Goal string

const (
	GoalUnset      Goal = ""
	GoalBusiness   Goal = "business"
	GoalFriendship Goal = "friendship"
	GoalRomantic   Goal = "romantic"
)

func (g Goal) Valid() bool {
	switch g {
	case GoalBusiness, GoalFriendship, GoalRomantic:
		return true
	}
	return false
}

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s ModerationStatus) Terminal() bool {
	return s == ModerationApproved || s == ModerationRejected
}

// User is a profile keyed by an internal surrogate id and the chat-platform id.
//
// Indexes:
//   - uniqueIndex on external_id: exactly one user per chat-platform identity.
//   - idx_users_active_gender_created(is_active, gender, created_at)
//     Serves the candidate query (active, complementary gender, newest first).
type User struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	ExternalID  int64     `gorm:"uniqueIndex;not null"`
	Name        string    `gorm:"size:64;not null;default:''"`
	Age         int       `gorm:"not null;default:0"`
	Gender      Gender    `gorm:"size:16;not null;default:'';index:idx_users_active_gender_created,priority:2"`
	Goal        Goal      `gorm:"size:16;not null;default:''"`
	Description string    `gorm:"size:500;not null;default:''"`
	PhotoRef    string    `gorm:"size:255;not null;default:''"`
	IsActive    bool      `gorm:"not null;default:false;index:idx_users_active_gender_created,priority:1"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_users_active_gender_created,priority:3"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// ProfileComplete reports whether every required field except the photo is set.
func (u *User) ProfileComplete() bool {
	return len([]rune(strings.TrimSpace(u.Name))) >= MinNameLength &&
		u.Age >= MinAge && u.Age <= MaxAge &&
		u.Gender.Valid() &&
		u.Goal.Valid()
}

// Eligible reports whether the profile may be shown to others:
// all fields present and an approved photo on record.
func (u *User) Eligible() bool {
	return u.ProfileComplete() && u.PhotoRef != ""
}

// ValidateProfile checks field domains before a write.
// Empty fields are accepted so lazily created users can be saved.
func (u *User) ValidateProfile() []string {
	var problems []string
	if n := utf8.RuneCountInString(u.Name); n > MaxNameLength {
		problems = append(problems, "name too long")
	}
	if u.Age != 0 && (u.Age < MinAge || u.Age > MaxAge) {
		problems = append(problems, "age out of range")
	}
	if u.Gender != GenderUnset && !u.Gender.Valid() {
		problems = append(problems, "unknown gender")
	}
	if u.Goal != GoalUnset && !u.Goal.Valid() {
		problems = append(problems, "unknown goal")
	}
	if utf8.RuneCountInString(u.Description) > MaxDescriptionLen {
		problems = append(problems, "description too long")
	}
	if u.IsActive && !u.Eligible() {
		problems = append(problems, "incomplete profile cannot be active")
	}
	return problems
}

// Like is a directional interest edge.
//
// Indexes:
//   - idx_likes_pair(from_user_id, to_user_id) UNIQUE
//     At most one like per ordered pair; also the O(1) reverse-leg lookup.
//   - idx_likes_to_created(to_user_id, created_at DESC)
//     Optimizes "who liked me" listing with pagination.
type Like struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	FromUserID uint64    `gorm:"not null;uniqueIndex:idx_likes_pair,priority:1"`
	ToUserID   uint64    `gorm:"not null;uniqueIndex:idx_likes_pair,priority:2;index:idx_likes_to_created,priority:1"`
	IsMutual   bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_likes_to_created,priority:2,sort:desc"`
}

// Skip records that a viewer passed on a target. Composite PK (ViewerID, TargetID)
// keeps a single row per pair; skips never notify and are never updated.
type Skip struct {
	ViewerID  uint64    `gorm:"primaryKey"`
	TargetID  uint64    `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// ModerationItem is one photo submission awaiting or holding a moderator decision.
//
// Indexes:
//   - idx_moderation_pending_once(user_id, photo_ref, pending) UNIQUE
//     Pending is true while the item awaits a decision and NULL afterwards.
//     NULLs never collide, so only one pending row may exist per (user, photo)
//     while any number of decided rows are retained as history.
//   - idx_moderation_status_created(status, created_at, id)
//     Serves the FIFO head lookup.
type ModerationItem struct {
	ID        uint64           `gorm:"primaryKey;autoIncrement;index:idx_moderation_status_created,priority:3"`
	UserID    uint64           `gorm:"not null;uniqueIndex:idx_moderation_pending_once,priority:1;index"`
	PhotoRef  string           `gorm:"size:255;not null;uniqueIndex:idx_moderation_pending_once,priority:2"`
	Pending   *bool            `gorm:"uniqueIndex:idx_moderation_pending_once,priority:3"`
	Status    ModerationStatus `gorm:"size:16;not null;default:'pending';index:idx_moderation_status_created,priority:1"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index:idx_moderation_status_created,priority:2"`
	DecidedAt *time.Time
}

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{&User{}, &Like{}, &Skip{}, &ModerationItem{}}
}
