// Package moderation drives the photo approval workflow on top of the
// moderation repository: submission, FIFO review and the decision side effects.
package moderation

import (
	"context"
	"time"

	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
	"github.com/oggyb/matchmaker/internal/repository"
)

const defaultRetentionDays = 30

// Decision is the result of approving or rejecting an item.
// Item is nil when there was nothing pending to decide.
type Decision struct {
	Item *db.ModerationItem
	// User is the owner after the decision was applied; set only on approval.
	User *db.User
}

// Applied reports whether the call actually transitioned an item.
func (d Decision) Applied() bool { return d.Item != nil }

type Queue struct {
	items     *repository.ModerationRepository
	retention time.Duration
	now       func() time.Time
}

// NewQueue builds the queue. retentionDays <= 0 falls back to 30 days.
func NewQueue(items *repository.ModerationRepository, retentionDays int) *Queue {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	return &Queue{
		items:     items,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit enqueues photoRef for userID. A duplicate pending submission returns the existing item, created = false.
func (q *Queue) Submit(ctx context.Context, userID uint64, photoRef string) (*db.ModerationItem, bool, error) {
	return q.items.Add(ctx, userID, photoRef)
}

// Next peeks at the oldest pending item system-wide.
func (q *Queue) Next(ctx context.Context) (*db.ModerationItem, error) {
	return q.items.NextPending(ctx)
}

// Approve decides the latest pending (userID, photoRef) item and applies the photo to the profile.
// Both writes commit together; after a failure the item is still pending and Approve can be retried.
func (q *Queue) Approve(ctx context.Context, userID uint64, photoRef string) (Decision, error) {
	item, owner, err := q.items.SetStatus(ctx, userID, photoRef, db.ModerationApproved)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Item: item, User: owner}, nil
}

// Reject decides the latest pending (userID, photoRef) item. The profile is left untouched.
func (q *Queue) Reject(ctx context.Context, userID uint64, photoRef string) (Decision, error) {
	item, _, err := q.items.SetStatus(ctx, userID, photoRef, db.ModerationRejected)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Item: item}, nil
}

// DecideByID decides one item by id. Unknown ids are ErrNotFound; decided ids are a no-op.
func (q *Queue) DecideByID(ctx context.Context, id uint64, approve bool) (Decision, error) {
	if _, err := q.items.GetByID(ctx, id); err != nil {
		return Decision{}, err
	}
	status := db.ModerationRejected
	if approve {
		status = db.ModerationApproved
	}
	item, owner, err := q.items.DecideByID(ctx, id, status)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Item: item, User: owner}, nil
}

// Status returns the status of the user's most recent submission; ok is false if none exists.
func (q *Queue) Status(ctx context.Context, userID uint64) (db.ModerationStatus, bool, error) {
	return q.items.LatestStatus(ctx, userID)
}

// Get returns one item by id.
func (q *Queue) Get(ctx context.Context, id uint64) (*db.ModerationItem, error) {
	if id == 0 {
		return nil, svcErr.Validation("moderation id is required")
	}
	return q.items.GetByID(ctx, id)
}

// PendingFor returns the user's in-flight submission, or nil.
func (q *Queue) PendingFor(ctx context.Context, userID uint64) (*db.ModerationItem, error) {
	return q.items.PendingByUser(ctx, userID)
}

// ForPhoto returns the latest submission of photoRef by userID in any status, or nil.
func (q *Queue) ForPhoto(ctx context.Context, userID uint64, photoRef string) (*db.ModerationItem, error) {
	if photoRef == "" {
		return nil, svcErr.Validation("photo reference is required")
	}
	return q.items.ByUserAndPhoto(ctx, userID, photoRef)
}

func (q *Queue) Stats(ctx context.Context) (repository.ModerationStats, error) {
	return q.items.Stats(ctx)
}

// Purge removes decided items older than the retention window and returns how many went.
func (q *Queue) Purge(ctx context.Context) (int64, error) {
	return q.items.PurgeDecided(ctx, q.now().Add(-q.retention))
}
