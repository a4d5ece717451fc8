package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
	"github.com/oggyb/matchmaker/internal/repository"
	"github.com/oggyb/matchmaker/internal/testutil"
)

func TestModeration_FIFO(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewModerationRepository(dbase)
	u1 := testutil.ActiveUser(t, dbase, 1, db.GenderMale, db.GoalRomantic)
	u2 := testutil.ActiveUser(t, dbase, 2, db.GenderFemale, db.GoalRomantic)

	s1, created, err := repo.Add(ctx, u1.ID, "s1")
	require.NoError(t, err)
	assert.True(t, created)
	time.Sleep(2 * time.Millisecond)
	s2, _, err := repo.Add(ctx, u2.ID, "s2")
	require.NoError(t, err)

	head, err := repo.NextPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, s1.ID, head.ID)

	// peeking does not consume
	head, err = repo.NextPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, s1.ID, head.ID)

	decided, _, err := repo.SetStatus(ctx, u1.ID, "s1", db.ModerationApproved)
	require.NoError(t, err)
	require.NotNil(t, decided)
	assert.Equal(t, db.ModerationApproved, decided.Status)
	assert.NotNil(t, decided.DecidedAt)

	head, err = repo.NextPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, s2.ID, head.ID)

	_, _, err = repo.DecideByID(ctx, s2.ID, db.ModerationRejected)
	require.NoError(t, err)

	head, err = repo.NextPending(ctx)
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestModeration_DuplicatePendingIsNoop(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewModerationRepository(dbase)
	u := testutil.ActiveUser(t, dbase, 1, db.GenderMale, db.GoalRomantic)

	first, created, err := repo.Add(ctx, u.ID, "p")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.Add(ctx, u.ID, "p")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var n int64
	require.NoError(t, dbase.Model(&db.ModerationItem{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestModeration_TerminalStates(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewModerationRepository(dbase)
	u := testutil.ActiveUser(t, dbase, 1, db.GenderMale, db.GoalRomantic)

	item, _, err := repo.Add(ctx, u.ID, "p")
	require.NoError(t, err)

	_, _, err = repo.SetStatus(ctx, u.ID, "p", db.ModerationPending)
	assert.ErrorIs(t, err, svcErr.ErrValidation)

	got, _, err := repo.SetStatus(ctx, u.ID, "p", db.ModerationRejected)
	require.NoError(t, err)
	require.NotNil(t, got)

	// nothing left to decide
	got, _, err = repo.SetStatus(ctx, u.ID, "p", db.ModerationApproved)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, _, err = repo.DecideByID(ctx, item.ID, db.ModerationApproved)
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ModerationRejected, stored.Status)

	got, _, err = repo.SetStatus(ctx, u.ID, "never-sent", db.ModerationApproved)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestModeration_ApprovalUpdatesOwner(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewModerationRepository(dbase)
	users := repository.NewUserRepository(dbase)

	u, err := users.CreateOrGet(ctx, 9)
	require.NoError(t, err)

	// incomplete profile: photo is stored, user stays inactive
	_, _, err = repo.Add(ctx, u.ID, "p1")
	require.NoError(t, err)
	item, owner, err := repo.SetStatus(ctx, u.ID, "p1", db.ModerationApproved)
	require.NoError(t, err)
	require.NotNil(t, item)
	require.NotNil(t, owner)
	assert.Equal(t, "p1", owner.PhotoRef)
	assert.False(t, owner.IsActive)

	u.Name, u.Age, u.Gender, u.Goal, u.PhotoRef = "Bob", 40, db.GenderMale, db.GoalBusiness, "p1"
	require.NoError(t, users.Save(ctx, u))

	second, _, err := repo.Add(ctx, u.ID, "p2")
	require.NoError(t, err)
	_, owner, err = repo.DecideByID(ctx, second.ID, db.ModerationApproved)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, "p2", owner.PhotoRef)
	assert.True(t, owner.IsActive)

	// rejection leaves the owner alone
	third, _, err := repo.Add(ctx, u.ID, "p3")
	require.NoError(t, err)
	_, owner, err = repo.DecideByID(ctx, third.ID, db.ModerationRejected)
	require.NoError(t, err)
	assert.Nil(t, owner)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "p2", stored.PhotoRef)
}

func TestModeration_ResubmissionKeepsHistory(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewModerationRepository(dbase)
	u := testutil.ActiveUser(t, dbase, 1, db.GenderMale, db.GoalRomantic)

	_, ok, err := repo.LatestStatus(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	old, _, err := repo.Add(ctx, u.ID, "p")
	require.NoError(t, err)
	_, _, err = repo.SetStatus(ctx, u.ID, "p", db.ModerationRejected)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	fresh, created, err := repo.Add(ctx, u.ID, "p")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, old.ID, fresh.ID)

	status, ok, err := repo.LatestStatus(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, db.ModerationPending, status)

	pending, err := repo.PendingByUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, fresh.ID, pending.ID)

	byPhoto, err := repo.ByUserAndPhoto(ctx, u.ID, "p")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, byPhoto.ID)

	rejected, err := repo.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ModerationRejected, rejected.Status)
}

func TestModeration_AddValidation(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewModerationRepository(testutil.NewDB(t))

	_, _, err := repo.Add(ctx, 1, "")
	assert.ErrorIs(t, err, svcErr.ErrValidation)

	_, _, err = repo.Add(ctx, 1, "p")
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	_, err = repo.GetByID(ctx, 5)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestModeration_StatsAndPurge(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewModerationRepository(dbase)
	u := testutil.ActiveUser(t, dbase, 1, db.GenderMale, db.GoalRomantic)

	for _, ref := range []string{"a", "b", "c", "d"} {
		_, _, err := repo.Add(ctx, u.ID, ref)
		require.NoError(t, err)
	}
	_, _, err := repo.SetStatus(ctx, u.ID, "a", db.ModerationApproved)
	require.NoError(t, err)
	_, _, err = repo.SetStatus(ctx, u.ID, "b", db.ModerationRejected)
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.ModerationStats{Total: 4, Pending: 2, Approved: 1, Rejected: 1}, stats)

	old := time.Now().UTC().AddDate(0, 0, -40)
	require.NoError(t, dbase.Model(&db.ModerationItem{}).
		Where("photo_ref IN ?", []string{"a", "c"}).
		Update("created_at", old).Error)

	purged, err := repo.PurgeDecided(ctx, time.Now().UTC().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged, "only the old decided item goes; old pending stays")

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Pending)
}
