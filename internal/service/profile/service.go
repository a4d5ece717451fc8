package profile

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/matchmaker/internal/app"
	"github.com/oggyb/matchmaker/internal/db"
	"github.com/oggyb/matchmaker/internal/dialogue"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
	"github.com/oggyb/matchmaker/internal/logger"
	"github.com/oggyb/matchmaker/internal/moderation"
	"github.com/oggyb/matchmaker/internal/repository"
	"github.com/oggyb/matchmaker/internal/utils/payload"
)

// Service exposes the profile wizard and profile lookups.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	queue  *moderation.Queue
	wizard *dialogue.Wizard
}

func NewProfileService(appCtx *app.AppContext) *Service {
	users := repository.NewUserRepository(appCtx.DB)
	queue := moderation.NewQueue(
		repository.NewModerationRepository(appCtx.DB),
		appCtx.Config.Moderation.RetentionDays,
	)
	store := dialogue.NewSessionStore(appCtx.RedisCache, appCtx.Config.Session.TTL)
	return &Service{
		appCtx: appCtx,
		users:  users,
		queue:  queue,
		wizard: dialogue.NewWizard(store, users, queue),
	}
}

// StartProfile opens the wizard for external_id. editing = true pre-fills the draft
// from a complete existing profile.
func (s *Service) StartProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	externalID, err := payload.Int64(req, "external_id")
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.appCtx.Logger).Debug("StartProfile called", "external_id", externalID)

	step, err := s.wizard.Start(ctx, externalID, payload.Bool(req, "editing"))
	if err != nil {
		return nil, svcErr.Map(err)
	}
	sess, err := s.wizard.Current(ctx, externalID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return payload.New(payload.Object{"stage": step.Stage.String(), "editing": sess.Editing})
}

// CancelProfile abandons the wizard; the stored profile is left as it was.
func (s *Service) CancelProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	externalID, err := payload.Int64(req, "external_id")
	if err != nil {
		return nil, err
	}
	if err := s.wizard.Cancel(ctx, externalID); err != nil {
		return nil, svcErr.Map(err)
	}
	return payload.New(payload.Object{"cancelled": true})
}

// SubmitProfileInput feeds one reply to the wizard.
//
// Example:
//
//	svc.SubmitProfileInput(ctx, {"external_id": "1001", "text": "25"})
//	svc.SubmitProfileInput(ctx, {"external_id": "1001", "photo_ref": "AgAC..."})
//	svc.SubmitProfileInput(ctx, {"external_id": "1001", "skip": true})
func (s *Service) SubmitProfileInput(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)

	externalID, err := payload.Int64(req, "external_id")
	if err != nil {
		return nil, err
	}
	step, err := s.wizard.Handle(ctx, externalID, dialogue.Input{
		Text:     payload.String(req, "text"),
		PhotoRef: payload.String(req, "photo_ref"),
		Skip:     payload.Bool(req, "skip"),
	})
	if err != nil {
		log.Error("wizard step failed", "external_id", externalID, "err", err)
		return nil, svcErr.Map(err)
	}

	resp := payload.Object{"stage": step.Stage.String(), "accepted": step.Problem == ""}
	if step.Problem != "" {
		resp["problem"] = step.Problem
	}
	if step.Moderation != nil {
		resp["moderation_id"] = payload.ID(step.Moderation.ID)
	}
	if step.User != nil {
		resp["profile"] = ownProfile(step.User)
	}
	return payload.New(resp)
}

// GetProfile returns the caller's own profile together with the latest moderation status.
func (s *Service) GetProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	externalID, err := payload.Int64(req, "external_id")
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	resp := payload.Object{"profile": ownProfile(user)}

	status, ok, err := s.queue.Status(ctx, user.ID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if ok {
		resp["moderation_status"] = string(status)
	}
	return payload.New(resp)
}

// ownProfile is the full profile as shown to its owner.
func ownProfile(u *db.User) payload.Object {
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
