package dialogue

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
	"github.com/oggyb/matchmaker/internal/moderation"
	"github.com/oggyb/matchmaker/internal/repository"
)

// Wizard walks a user through profile creation or editing.
// One active session per external id; a new Start replaces the previous one.
type Wizard struct {
	store *SessionStore
	users *repository.UserRepository
	queue *moderation.Queue
}

func NewWizard(store *SessionStore, users *repository.UserRepository, queue *moderation.Queue) *Wizard {
	return &Wizard{store: store, users: users, queue: queue}
}

// Start opens a session for externalID, creating the user on first contact.
// Editing is only honored for users whose profile is already complete.
func (w *Wizard) Start(ctx context.Context, externalID int64, editing bool) (*Step, error) {
	user, err := w.users.CreateOrGet(ctx, externalID)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ExternalID: externalID,
		UserID:     user.ID,
		Stage:      StageName,
		Editing:    editing && user.ProfileComplete(),
	}
	if sess.Editing {
		sess.Draft = Draft{
			Name:        user.Name,
			Age:         user.Age,
			Gender:      user.Gender,
			PhotoRef:    user.PhotoRef,
			Goal:        user.Goal,
			Description: user.Description,
		}
	}
	if err := w.store.Save(ctx, sess); err != nil {
		return nil, svcErr.Storage(err)
	}
	return &Step{Stage: sess.Stage}, nil
}

// Current returns the active session of externalID or ErrNotFound.
func (w *Wizard) Current(ctx context.Context, externalID int64) (*Session, error) {
	sess, ok, err := w.store.Load(ctx, externalID)
	if err != nil {
		return nil, svcErr.Storage(err)
	}
	if !ok {
		return nil, svcErr.ErrNotFound
	}
	return sess, nil
}

// Cancel drops the session without touching the stored profile.
func (w *Wizard) Cancel(ctx context.Context, externalID int64) error {
	return svcErr.Storage(w.store.Delete(ctx, externalID))
}

// Handle applies one reply to the current stage. Invalid input keeps the stage
// and reports a Problem; valid input advances. Finishing saves the profile.
func (w *Wizard) Handle(ctx context.Context, externalID int64, in Input) (*Step, error) {
	sess, err := w.Current(ctx, externalID)
	if err != nil {
		return nil, err
	}

	step := &Step{Stage: sess.Stage}
	text := strings.TrimSpace(in.Text)

	switch sess.Stage {
	case StageName:
		if n := utf8.RuneCountInString(text); n < db.MinNameLength || n > db.MaxNameLength {
			step.Problem = ProblemName
			break
		}
		sess.Draft.Name = text

	case StageAge:
		age, convErr := strconv.Atoi(text)
		if convErr != nil || age < db.MinAge || age > db.MaxAge {
			step.Problem = ProblemAge
			break
		}
		sess.Draft.Age = age

	case StageGender:
		g := db.Gender(strings.ToLower(text))
		if !g.Valid() {
			step.Problem = ProblemGender
			break
		}
		sess.Draft.Gender = g

	case StagePhoto:
		switch {
		case in.PhotoRef != "":
			item, _, subErr := w.queue.Submit(ctx, sess.UserID, in.PhotoRef)
			if subErr != nil {
				return nil, subErr
			}
			sess.Draft.PhotoRef = in.PhotoRef
			sess.Draft.NewPhoto = true
			step.Moderation = item
		case in.Skip && sess.Editing && sess.Draft.PhotoRef != "":
			// keep the approved photo on record
		default:
			step.Problem = ProblemPhoto
		}

	case StageGoal:
		g := db.Goal(strings.ToLower(text))
		if !g.Valid() {
			step.Problem = ProblemGoal
			break
		}
		sess.Draft.Goal = g

	case StageDescription:
		switch {
		case in.Skip && sess.Editing:
			// keep the previous description
		case in.Skip:
			sess.Draft.Description = ""
		case utf8.RuneCountInString(text) > db.MaxDescriptionLen:
			step.Problem = ProblemDescription
		default:
			sess.Draft.Description = text
		}

	default:
		// StageDone sessions are deleted on finish; a stale one is restarted.
		sess.Stage = StageName
		step.Stage = StageName
		return step, svcErr.Storage(w.store.Save(ctx, sess))
	}

	if step.Problem != "" {
		return step, nil
	}

	sess.Stage = sess.Stage.next()
	step.Stage = sess.Stage
	if sess.Stage == StageDone {
		user, finErr := w.finish(ctx, sess)
		if finErr != nil {
			return nil, finErr
		}
		step.User = user
		return step, nil
	}
	return step, svcErr.Storage(w.store.Save(ctx, sess))
}

// finish writes the draft onto the stored user. The photo on record is whatever
// moderation last approved; a freshly submitted photo becomes visible only on approval.
func (w *Wizard) finish(ctx context.Context, sess *Session) (*db.User, error) {
	user, err := w.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	user.Name = sess.Draft.Name
	user.Age = sess.Draft.Age
	user.Gender = sess.Draft.Gender
	user.Goal = sess.Draft.Goal
	user.Description = sess.Draft.Description
	user.IsActive = user.Eligible()

	if err := w.users.Save(ctx, user); err != nil {
		return nil, err
	}
	if err := w.store.Delete(ctx, sess.ExternalID); err != nil {
		return nil, svcErr.Storage(err)
	}
	return user, nil
}
