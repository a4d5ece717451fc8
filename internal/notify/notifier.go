// Package notify publishes user-facing events into Redis channels for the chat
// transport to deliver. Delivery is best effort; the core state never depends on it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/matchmaker/internal/cache"
	"github.com/oggyb/matchmaker/internal/db"
)

// ErrNoRedis is returned by Subscribe on a notifier built without a Redis cache.
var ErrNoRedis = errors.New("notifier has no redis connection")

type EventType string

const (
	EventLike       EventType = "like"
	EventMatch      EventType = "match"
	EventModeration EventType = "moderation_decision"
)

// Peer is the public card of the other user in a like or match event.
type Peer struct {
	UserID     uint64 `json:"user_id"`
	ExternalID int64  `json:"external_id"`
	Name       string `json:"name"`
	Age        int    `json:"age"`
	PhotoRef   string `json:"photo_ref,omitempty"`
}

// Event is the JSON payload published on notifications:user:<id>.
type Event struct {
	Type         EventType `json:"type"`
	UserID       uint64    `json:"user_id"`
	Peer         *Peer     `json:"peer,omitempty"`
	ModerationID uint64    `json:"moderation_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	PhotoRef     string    `json:"photo_ref,omitempty"`
	At           time.Time `json:"at"`
}

// Notifier provides helpers to publish notifications into Redis channels.
type Notifier struct {
	rdb *redis.Client
	now func() time.Time
}

// NewNotifier creates a Notifier on the shared Redis cache. A nil cache yields a no-op notifier.
func NewNotifier(rc *cache.RedisCache) *Notifier {
	n := &Notifier{now: func() time.Time { return time.Now().UTC() }}
	if rc != nil {
		n.rdb = rc.Client
	}
	return n
}

// Publish sends ev to the recipient's channel.
func (n *Notifier) Publish(ctx context.Context, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = n.now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	return n.rdb.Publish(ctx, cache.ChannelForUser(ev.UserID), payload).Err()
}

// PublishLike tells recipientID that liker liked them.
func (n *Notifier) PublishLike(ctx context.Context, recipientID uint64, liker *db.User) error {
	return n.Publish(ctx, Event{Type: EventLike, UserID: recipientID, Peer: peerOf(liker)})
}

// PublishMatch tells both users about the match. Callers invoke it once per pair,
// on the like that turned the pair mutual.
func (n *Notifier) PublishMatch(ctx context.Context, a, b *db.User) error {
	if err := n.Publish(ctx, Event{Type: EventMatch, UserID: a.ID, Peer: peerOf(b)}); err != nil {
		return err
	}
	return n.Publish(ctx, Event{Type: EventMatch, UserID: b.ID, Peer: peerOf(a)})
}

// PublishModeration tells the owner of item how their photo was decided.
func (n *Notifier) PublishModeration(ctx context.Context, item *db.ModerationItem) error {
	return n.Publish(ctx, Event{
		Type:         EventModeration,
		UserID:       item.UserID,
		ModerationID: item.ID,
		Status:       string(item.Status),
		PhotoRef:     item.PhotoRef,
	})
}

// Subscribe opens a subscription on userID's channel. The caller closes it.
func (n *Notifier) Subscribe(ctx context.Context, userID uint64) (*redis.PubSub, error) {
	if n == nil || n.rdb == nil {
		return nil, ErrNoRedis
	}
	return n.rdb.Subscribe(ctx, cache.ChannelForUser(userID)), nil
}

func peerOf(u *db.User) *Peer {
	return &Peer{
		UserID:     u.ID,
		ExternalID: u.ExternalID,
		Name:       u.Name,
		Age:        u.Age,
		PhotoRef:   u.PhotoRef,
	}
}
