package explore

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/matchmaker/internal/app"
	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
	"github.com/oggyb/matchmaker/internal/logger"
	"github.com/oggyb/matchmaker/internal/matching"
	"github.com/oggyb/matchmaker/internal/notify"
	"github.com/oggyb/matchmaker/internal/repository"
	"github.com/oggyb/matchmaker/internal/utils/payload"
)

const likersPageSize = 5

// Service implements the Explore gRPC API: browsing candidates, liking or skipping
// them and listing likes and matches. It is the caller of the like/match engine
// and therefore the one place that fires like and match notifications.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	likes    *repository.LikeRepository
	selector *matching.Selector
	engine   *matching.Engine
	notifier *notify.Notifier
}

// NewExploreService creates a new Explore service with dependencies from AppContext.
func NewExploreService(appCtx *app.AppContext) *Service {
	users := repository.NewUserRepository(appCtx.DB)
	likes := repository.NewLikeRepository(appCtx.DB)
	return &Service{
		appCtx:   appCtx,
		users:    users,
		likes:    likes,
		selector: matching.NewSelector(users, repository.NewCandidateRepository(appCtx.DB)),
		engine:   matching.NewEngine(likes, repository.NewSkipRepository(appCtx.DB)),
		notifier: notify.NewNotifier(appCtx.RedisCache),
	}
}

// NextCandidate returns the next profile for the viewer.
//
// Behavior:
//   - Complementary-gender candidates first; once exhausted, any remaining candidate (fallback = true).
//   - found = false when nothing is left or the viewer's profile is not active.
//   - liked_you is true when the candidate already liked the viewer.
//
// Example:
//
//	svc.NextCandidate(ctx, {"external_id": "1001"})
func (s *Service) NextCandidate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, viewer, err := s.viewer(ctx, req)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, s.appCtx.Logger)
	log.Debug("NextCandidate called")

	candidate, fallback, err := s.selector.NextOrAny(ctx, viewer.ID)
	if err != nil {
		log.Error("candidate lookup failed", "err", err)
		return nil, svcErr.Map(err)
	}
	if candidate == nil {
		return payload.New(payload.Object{"found": false, "viewer_active": viewer.IsActive})
	}
	likedYou, err := s.likes.HasLiked(ctx, candidate.ID, viewer.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return payload.New(payload.Object{
		"found":         true,
		"fallback":      fallback,
		"viewer_active": true,
		"liked_you":     likedYou,
		"candidate":     profileObject(candidate),
	})
}

// PutDecision records a like or skip on a candidate.
//
// Behavior:
//   - action is "like" or "skip"; target_user_id is the internal id from NextCandidate.
//   - A fresh like notifies the target; the like that completes a pair notifies
//     both users of the match instead. Repeats notify nobody.
//
// Example:
//
//	svc.PutDecision(ctx, {"external_id": "1001", "target_user_id": "7", "action": "like"})
func (s *Service) PutDecision(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, viewer, err := s.viewer(ctx, req)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, s.appCtx.Logger)
	targetID, err := payload.Uint64(req, "target_user_id")
	if err != nil {
		return nil, err
	}
	action := payload.String(req, "action")
	log.Debug("PutDecision called", "target", targetID, "action", action)

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	switch action {
	case "skip":
		created, err := s.engine.Skip(ctx, viewer.ID, target.ID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		return payload.New(payload.Object{"created": created, "mutual": false, "matched": false})

	case "like":
		res, err := s.engine.Like(ctx, viewer.ID, target.ID)
		if err != nil {
			log.Error("like failed", "target", target.ID, "err", err)
			return nil, svcErr.Map(err)
		}
		s.announce(ctx, res, viewer, target)
		return payload.New(payload.Object{
			"created": res.Created,
			"mutual":  res.Like.IsMutual,
			"matched": res.Matched,
		})
	}
	return nil, svcErr.InvalidArgument(`action must be "like" or "skip"`)
}

func (s *Service) announce(ctx context.Context, res matching.LikeResult, viewer, target *db.User) {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	var err error
	switch {
	case res.Matched:
		err = s.notifier.PublishMatch(ctx, viewer, target)
	case res.Created:
		err = s.notifier.PublishLike(ctx, target.ID, viewer)
	}
	if err != nil {
		// delivery is best effort; the like itself is committed
		log.Warn("notification failed", "target", target.ID, "err", err)
	}
}

// ListLikedYou returns the users who liked the viewer, newest first.
//
// Behavior:
//   - Likers the viewer skipped are hidden.
//   - Cursor-based pagination with pagination_token.
//
// Example:
//
//	svc.ListLikedYou(ctx, {"external_id": "1001"})
func (s *Service) ListLikedYou(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.listLikers(ctx, req, false)
}

// ListNewLikedYou is ListLikedYou restricted to likers the viewer has not liked back.
func (s *Service) ListNewLikedYou(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.listLikers(ctx, req, true)
}

func (s *Service) listLikers(ctx context.Context, req *structpb.Struct, onlyNew bool) (*structpb.Struct, error) {
	ctx, viewer, err := s.viewer(ctx, req)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, s.appCtx.Logger)
	views, nextToken, err := s.likes.ListLikers(ctx, viewer.ID, payload.OptionalString(req, "pagination_token"), likersPageSize, onlyNew)
	if err != nil {
		log.Error("ListLikers failed", "err", err)
		return nil, svcErr.Map(err)
	}

	likers := make([]any, 0, len(views))
	for _, v := range views {
		likers = append(likers, payload.Object{
			"user_id":        payload.ID(v.FromUserID),
			"external_id":    payload.ID(v.PeerExternalID),
			"name":           v.PeerName,
			"age":            v.PeerAge,
			"photo_ref":      v.PeerPhotoRef,
			"mutual":         v.IsMutual,
			"unix_timestamp": v.CreatedAt.UnixMilli(),
		})
	}
	resp := payload.Object{"likers": likers}
	if nextToken != nil {
		resp["next_pagination_token"] = *nextToken
	}
	log.Debug("ListLikers result", "liker_count", len(likers), "only_new", onlyNew)
	return payload.New(resp)
}

// ListMatches returns the viewer's mutual pairs, newest first.
func (s *Service) ListMatches(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, viewer, err := s.viewer(ctx, req)
	if err != nil {
		return nil, err
	}
	views, err := s.likes.Matches(ctx, viewer.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	matches := make([]any, 0, len(views))
	for _, v := range views {
		matches = append(matches, payload.Object{
			"user_id":        payload.ID(v.ToUserID),
			"external_id":    payload.ID(v.PeerExternalID),
			"name":           v.PeerName,
			"age":            v.PeerAge,
			"photo_ref":      v.PeerPhotoRef,
			"unix_timestamp": v.CreatedAt.UnixMilli(),
		})
	}
	return payload.New(payload.Object{"matches": matches})
}

// viewer resolves external_id and returns a context whose logger carries the viewer's ids.
func (s *Service) viewer(ctx context.Context, req *structpb.Struct) (context.Context, *db.User, error) {
	externalID, err := payload.Int64(req, "external_id")
	if err != nil {
		return ctx, nil, err
	}
	u, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return ctx, nil, svcErr.Map(err)
	}
	return logger.WithViewer(ctx, s.appCtx.Logger, u.ID, u.ExternalID), u, nil
}

// profileObject is the public card of a user.
func profileObject(u *db.User) payload.Object {
	return payload.Object{
		"user_id":     payload.ID(u.ID),
		"external_id": payload.ID(u.ExternalID),
		"name":        u.Name,
		"age":         u.Age,
		"gender":      string(u.Gender),
		"goal":        string(u.Goal),
		"description": u.Description,
		"photo_ref":   u.PhotoRef,
	}
}
