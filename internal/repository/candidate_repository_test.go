package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchmaker/internal/db"
	"github.com/oggyb/matchmaker/internal/repository"
	"github.com/oggyb/matchmaker/internal/testutil"
)

func TestFindCandidate_GoalTierBeatsRecency(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewCandidateRepository(dbase)

	viewer := testutil.ActiveUser(t, dbase, 1, db.GenderMale, db.GoalRomantic)
	older := testutil.ActiveUser(t, dbase, 2, db.GenderFemale, db.GoalRomantic)
	time.Sleep(2 * time.Millisecond)
	testutil.ActiveUser(t, dbase, 3, db.GenderFemale, db.GoalBusiness)

	got, err := repo.FindCandidate(ctx, viewer, repository.CandidateQuery{MatchGender: true})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, older.ID, got.ID)
}

func TestFindCandidate_NewestWithinTier(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewCandidateRepository(dbase)

	viewer := testutil.ActiveUser(t, dbase, 1, db.GenderFemale, db.GoalFriendship)
	testutil.ActiveUser(t, dbase, 2, db.GenderMale, db.GoalFriendship)
	time.Sleep(2 * time.Millisecond)
	newer := testutil.ActiveUser(t, dbase, 3, db.GenderMale, db.GoalFriendship)

	got, err := repo.FindCandidate(ctx, viewer, repository.CandidateQuery{MatchGender: true})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)

	// deterministic: same state, same answer
	again, err := repo.FindCandidate(ctx, viewer, repository.CandidateQuery{MatchGender: true})
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
}

func TestFindCandidate_GenderFilter(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewCandidateRepository(dbase)

	viewer := testutil.ActiveUser(t, dbase, 1, db.GenderMale, db.GoalRomantic)
	same := testutil.ActiveUser(t, dbase, 2, db.GenderMale, db.GoalRomantic)

	got, err := repo.FindCandidate(ctx, viewer, repository.CandidateQuery{MatchGender: true})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.FindCandidate(ctx, viewer, repository.CandidateQuery{})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, same.ID, got.ID)
}

func TestFindCandidate_ExcludesActedAndInactive(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewCandidateRepository(dbase)
	likes := repository.NewLikeRepository(dbase)
	skips := repository.NewSkipRepository(dbase)

	viewer := testutil.ActiveUser(t, dbase, 1, db.GenderMale, db.GoalRomantic)
	liked := testutil.ActiveUser(t, dbase, 2, db.GenderFemale, db.GoalRomantic)
	skipped := testutil.ActiveUser(t, dbase, 3, db.GenderFemale, db.GoalRomantic)
	hidden := testutil.ActiveUser(t, dbase, 4, db.GenderFemale, db.GoalRomantic)
	require.NoError(t, dbase.Model(hidden).Update("is_active", false).Error)

	_, _, err := likes.Add(ctx, viewer.ID, liked.ID)
	require.NoError(t, err)
	created, err := skips.Add(ctx, viewer.ID, skipped.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = skips.Add(ctx, viewer.ID, skipped.ID)
	require.NoError(t, err)
	assert.False(t, created)

	var edges int64
	require.NoError(t, dbase.Model(&db.Skip{}).Where("viewer_id = ?", viewer.ID).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)

	got, err := repo.FindCandidate(ctx, viewer, repository.CandidateQuery{})
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := repo.CountRemaining(ctx, viewer)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFindCandidate_UnsetGenderSeesEveryone(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewCandidateRepository(dbase)

	viewer := &db.User{ID: 999, Goal: db.GoalBusiness}
	testutil.ActiveUser(t, dbase, 1, db.GenderMale, db.GoalRomantic)
	time.Sleep(2 * time.Millisecond)
	f := testutil.ActiveUser(t, dbase, 2, db.GenderFemale, db.GoalRomantic)

	got, err := repo.FindCandidate(ctx, viewer, repository.CandidateQuery{MatchGender: true})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.ID, got.ID)

	n, err := repo.CountRemaining(ctx, viewer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
