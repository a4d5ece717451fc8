package moderation

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/matchmaker/internal/app"
	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
	"github.com/oggyb/matchmaker/internal/logger"
	"github.com/oggyb/matchmaker/internal/moderation"
	"github.com/oggyb/matchmaker/internal/notify"
	"github.com/oggyb/matchmaker/internal/repository"
	"github.com/oggyb/matchmaker/internal/session"
	"github.com/oggyb/matchmaker/internal/utils/payload"
)

// Service is the moderator-facing API: the photo queue plus administrative
// user and statistics operations. Every method requires a session.Admin in the context.
type Service struct {
	appCtx   *app.AppContext
	users      *repository.UserRepository
	likes      *repository.LikeRepository
	candidates *repository.CandidateRepository
	queue      *moderation.Queue
	notifier   *notify.Notifier
}

func NewModerationService(appCtx *app.AppContext) *Service {
	users := repository.NewUserRepository(appCtx.DB)
	return &Service{
		appCtx:     appCtx,
		users:      users,
		likes:      repository.NewLikeRepository(appCtx.DB),
		candidates: repository.NewCandidateRepository(appCtx.DB),
		queue: moderation.NewQueue(
			repository.NewModerationRepository(appCtx.DB),
			appCtx.Config.Moderation.RetentionDays,
		),
		notifier: notify.NewNotifier(appCtx.RedisCache),
	}
}

// NextPending peeks at the oldest pending photo. found = false when the queue is empty.
func (s *Service) NextPending(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	item, err := s.queue.Next(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if item == nil {
		return payload.New(payload.Object{"found": false})
	}
	owner, err := s.users.GetByID(ctx, item.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return payload.New(payload.Object{
		"found": true,
		"item":  itemObject(item),
		"owner": userObject(owner),
	})
}

// GetItem looks up a single submission.
//
// Behavior:
//   - moderation_id selects that item; unknown ids are NotFound.
//   - external_id plus photo_ref selects the latest item for that photo in any status.
//   - external_id alone selects the owner's pending item.
//   - found = false when the owner has no matching item.
func (s *Service) GetItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	var (
		item *db.ModerationItem
		err  error
	)
	switch {
	case payload.Has(req, "moderation_id"):
		id, perr := payload.Uint64(req, "moderation_id")
		if perr != nil {
			return nil, perr
		}
		item, err = s.queue.Get(ctx, id)
	default:
		owner, uerr := s.userByExternalID(ctx, req)
		if uerr != nil {
			return nil, uerr
		}
		if photoRef := payload.String(req, "photo_ref"); photoRef != "" {
			item, err = s.queue.ForPhoto(ctx, owner.ID, photoRef)
		} else {
			item, err = s.queue.PendingFor(ctx, owner.ID)
		}
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if item == nil {
		return payload.New(payload.Object{"found": false})
	}
	return payload.New(payload.Object{"found": true, "item": itemObject(item)})
}

// Decide approves or rejects a submission.
//
// Behavior:
//   - Addressed by moderation_id, or by owner external_id plus photo_ref.
//   - applied = false when the item was already decided; nobody is notified then.
//   - Approval stores the photo on the profile and activates it when complete.
//
// Example:
//
//	svc.Decide(ctx, {"moderation_id": "12", "approve": true})
func (s *Service) Decide(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	admin, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, s.appCtx.Logger)
	approve := payload.Bool(req, "approve")

	var decision moderation.Decision
	if payload.Has(req, "moderation_id") {
		id, err := payload.Uint64(req, "moderation_id")
		if err != nil {
			return nil, err
		}
		decision, err = s.queue.DecideByID(ctx, id, approve)
		if err != nil {
			return nil, svcErr.Map(err)
		}
	} else {
		owner, err := s.userByExternalID(ctx, req)
		if err != nil {
			return nil, err
		}
		photoRef := payload.String(req, "photo_ref")
		if photoRef == "" {
			return nil, svcErr.InvalidArgument("photo_ref is required")
		}
		if approve {
			decision, err = s.queue.Approve(ctx, owner.ID, photoRef)
		} else {
			decision, err = s.queue.Reject(ctx, owner.ID, photoRef)
		}
		if err != nil {
			return nil, svcErr.Map(err)
		}
	}

	resp := payload.Object{"applied": decision.Applied()}
	if !decision.Applied() {
		return payload.New(resp)
	}

	log.Info("moderation decided",
		"moderation_id", decision.Item.ID,
		"status", decision.Item.Status,
		"admin", admin.ExternalID,
	)
	if err := s.notifier.PublishModeration(ctx, decision.Item); err != nil {
		log.Warn("moderation notification failed", "moderation_id", decision.Item.ID, "err", err)
	}

	resp["item"] = itemObject(decision.Item)
	if decision.User != nil {
		resp["user_active"] = decision.User.IsActive
	}
	return payload.New(resp)
}

// Stats returns moderation counters per status.
func (s *Service) Stats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return payload.New(moderationStatsObject(stats))
}

// Purge deletes decided items older than the configured retention.
func (s *Service) Purge(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	admin, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	purged, err := s.queue.Purge(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	logger.FromContext(ctx, s.appCtx.Logger).Info("moderation purged", "purged", purged, "admin", admin.ExternalID)
	return payload.New(payload.Object{"purged": purged})
}

// ServiceStats summarizes users, likes and moderation in one call.
func (s *Service) ServiceStats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	users, err := s.users.Counts(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	total, mutual, err := s.likes.Counts(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return payload.New(payload.Object{
		"users": payload.Object{
			"total":      users.Total,
			"active":     users.Active,
			"with_photo": users.WithPhoto,
		},
		"likes": payload.Object{
			"total":  total,
			"mutual": mutual,
		},
		"moderation": moderationStatsObject(stats),
		"at":         time.Now().UTC().Format(time.RFC3339),
	})
}

// ViewUser returns any user's profile, latest moderation status, how many likes
// they received and how many candidates they still have to browse.
func (s *Service) ViewUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	user, err := s.userByExternalID(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := payload.Object{"user": userObject(user)}
	status, ok, err := s.queue.Status(ctx, user.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if ok {
		resp["moderation_status"] = string(status)
	}
	remaining, err := s.candidates.CountRemaining(ctx, user)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	resp["candidates_remaining"] = remaining
	received, err := s.likes.ReceivedBy(ctx, user.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	resp["likes_received"] = len(received)
	return payload.New(resp)
}

// DeleteUser removes a user with their likes, skips and moderation items.
func (s *Service) DeleteUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	admin, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	externalID, err := payload.Int64(req, "external_id")
	if err != nil {
		return nil, err
	}
	deleted, err := s.users.DeleteByExternalID(ctx, externalID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	logger.FromContext(ctx, s.appCtx.Logger).Info("user deleted",
		"external_id", externalID, "deleted", deleted, "admin", admin.ExternalID)
	return payload.New(payload.Object{"deleted": deleted})
}

func (s *Service) userByExternalID(ctx context.Context, req *structpb.Struct) (*db.User, error) {
	externalID, err := payload.Int64(req, "external_id")
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return u, nil
}

func requireAdmin(ctx context.Context) (session.Admin, error) {
	admin, ok := session.AdminFrom(ctx)
	if !ok {
		return session.Admin{}, svcErr.PermissionDenied("admin session required")
	}
	return admin, nil
}

func itemObject(item *db.ModerationItem) payload.Object {
	obj := payload.Object{
		"moderation_id":  payload.ID(item.ID),
		"user_id":        payload.ID(item.UserID),
		"photo_ref":      item.PhotoRef,
		"status":         string(item.Status),
		"unix_timestamp": item.CreatedAt.UnixMilli(),
	}
	if item.DecidedAt != nil {
		obj["decided_unix_timestamp"] = item.DecidedAt.UnixMilli()
	}
	return obj
}

func userObject(u *db.User) payload.Object {
	return payload.Object{
		"user_id":     payload.ID(u.ID),
		"external_id": payload.ID(u.ExternalID),
		"name":        u.Name,
		"age":         u.Age,
		"gender":      string(u.Gender),
		"goal":        string(u.Goal),
		"description": u.Description,
		"photo_ref":   u.PhotoRef,
		"is_active":   u.IsActive,
	}
}

func moderationStatsObject(s repository.ModerationStats) payload.Object {
	return payload.Object{
		"total":    s.Total,
		"pending":  s.Pending,
		"approved": s.Approved,
		"rejected": s.Rejected,
	}
}
