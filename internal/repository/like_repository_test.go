package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/matchmaker/internal/db"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
	"github.com/oggyb/matchmaker/internal/repository"
	"github.com/oggyb/matchmaker/internal/testutil"
)

// seedPair creates a male and a female active user sharing a goal.
func seedPair(t *testing.T, dbase *gorm.DB) (*db.User, *db.User) {
	t.Helper()
	a := testutil.ActiveUser(t, dbase, 1, db.GenderMale, db.GoalRomantic)
	b := testutil.ActiveUser(t, dbase, 2, db.GenderFemale, db.GoalRomantic)
	return a, b
}

func loadLike(t *testing.T, dbase *gorm.DB, from, to uint64) db.Like {
	t.Helper()
	var like db.Like
	require.NoError(t, dbase.Where("from_user_id = ? AND to_user_id = ?", from, to).First(&like).Error)
	return like
}

func TestAddLike_Idempotent(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)
	a, b := seedPair(t, dbase)

	first, created, err := repo.Add(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, first.IsMutual)

	second, created, err := repo.Add(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var n int64
	require.NoError(t, dbase.Model(&db.Like{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestAddLike_MutualFlipsBothLegs(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)
	a, b := seedPair(t, dbase)

	_, _, err := repo.Add(ctx, a.ID, b.ID)
	require.NoError(t, err)

	assert.False(t, loadLike(t, dbase, a.ID, b.ID).IsMutual, "no leg is mutual before the second like")

	ba, created, err := repo.Add(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, ba.IsMutual)

	assert.True(t, loadLike(t, dbase, a.ID, b.ID).IsMutual)

	// repeating the like reports the mutual state but is not a fresh transition
	again, created, err := repo.Add(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, again.IsMutual)
}

func TestAddLike_ConcurrentPairMatchesOnce(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)
	a, b := seedPair(t, dbase)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		fresh  int
		errors []error
	)
	for _, pair := range [][2]uint64{{a.ID, b.ID}, {b.ID, a.ID}} {
		wg.Add(1)
		go func(from, to uint64) {
			defer wg.Done()
			like, created, err := repo.Add(ctx, from, to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errors = append(errors, err)
				return
			}
			if created && like.IsMutual {
				fresh++
			}
		}(pair[0], pair[1])
	}
	wg.Wait()

	require.Empty(t, errors)
	assert.Equal(t, 1, fresh)

	var mutual int64
	require.NoError(t, dbase.Model(&db.Like{}).Where("is_mutual = ?", true).Count(&mutual).Error)
	assert.Equal(t, int64(2), mutual)
}

func TestAddLike_UnknownUser(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)
	a, _ := seedPair(t, dbase)

	_, _, err := repo.Add(ctx, a.ID, 999)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestHasLiked(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)
	a, b := seedPair(t, dbase)

	_, _, err := repo.Add(ctx, a.ID, b.ID)
	require.NoError(t, err)

	ok, err := repo.HasLiked(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasLiked(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReceivedBy_NewestFirstWithLikerFields(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)

	target := testutil.ActiveUser(t, dbase, 10, db.GenderFemale, db.GoalRomantic)
	first := testutil.ActiveUser(t, dbase, 11, db.GenderMale, db.GoalRomantic)
	second := testutil.ActiveUser(t, dbase, 12, db.GenderMale, db.GoalBusiness)

	_, _, err := repo.Add(ctx, first.ID, target.ID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, _, err = repo.Add(ctx, second.ID, target.ID)
	require.NoError(t, err)

	views, err := repo.ReceivedBy(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].FromUserID)
	assert.Equal(t, "user12", views[0].PeerName)
	assert.Equal(t, 30, views[0].PeerAge)
	assert.Equal(t, int64(12), views[0].PeerExternalID)
	assert.Equal(t, first.ID, views[1].FromUserID)
}

func TestListLikers_PaginationAndFilters(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	likes := repository.NewLikeRepository(dbase)
	skips := repository.NewSkipRepository(dbase)

	target := testutil.ActiveUser(t, dbase, 100, db.GenderFemale, db.GoalRomantic)
	var likers []*db.User
	for i := int64(1); i <= 5; i++ {
		u := testutil.ActiveUser(t, dbase, 100+i, db.GenderMale, db.GoalRomantic)
		likers = append(likers, u)
		_, _, err := likes.Add(ctx, u.ID, target.ID)
		require.NoError(t, err)
	}

	// target skipped liker 0 and matched liker 1
	_, err := skips.Add(ctx, target.ID, likers[0].ID)
	require.NoError(t, err)
	_, _, err = likes.Add(ctx, target.ID, likers[1].ID)
	require.NoError(t, err)

	page1, token, err := likes.ListLikers(ctx, target.ID, nil, 2, false)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, token)
	assert.Equal(t, likers[4].ID, page1[0].FromUserID)
	assert.Equal(t, likers[3].ID, page1[1].FromUserID)

	page2, token, err := likes.ListLikers(ctx, target.ID, token, 2, false)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Nil(t, token)
	assert.Equal(t, likers[2].ID, page2[0].FromUserID)
	assert.Equal(t, likers[1].ID, page2[1].FromUserID)

	fresh, _, err := likes.ListLikers(ctx, target.ID, nil, 10, true)
	require.NoError(t, err)
	require.Len(t, fresh, 3)
	for _, v := range fresh {
		assert.NotEqual(t, likers[0].ID, v.FromUserID)
		assert.NotEqual(t, likers[1].ID, v.FromUserID)
	}

	bad := "not-a-token"
	_, _, err = likes.ListLikers(ctx, target.ID, &bad, 2, false)
	assert.ErrorIs(t, err, svcErr.ErrValidation)
}

func TestListLikers_SameMillisecondPages(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	likes := repository.NewLikeRepository(dbase)

	target := testutil.ActiveUser(t, dbase, 200, db.GenderFemale, db.GoalRomantic)
	base := db.Now().Truncate(time.Millisecond).Add(100 * time.Microsecond)
	want := make([]uint64, 0, 4)
	for i := int64(1); i <= 4; i++ {
		u := testutil.ActiveUser(t, dbase, 200+i, db.GenderMale, db.GoalRomantic)
		like, _, err := likes.Add(ctx, u.ID, target.ID)
		require.NoError(t, err)
		// all four land inside one millisecond, 217µs apart
		require.NoError(t, dbase.Model(&db.Like{}).
			Where("id = ?", like.ID).
			Update("created_at", base.Add(time.Duration(i)*217*time.Microsecond)).Error)
		want = append([]uint64{u.ID}, want...)
	}

	var (
		got   []uint64
		token *string
	)
	for page := 0; page < 10; page++ {
		views, next, err := likes.ListLikers(ctx, target.ID, token, 1, false)
		require.NoError(t, err)
		for _, v := range views {
			got = append(got, v.FromUserID)
		}
		if next == nil {
			break
		}
		token = next
	}
	assert.Equal(t, want, got)
}

func TestMatchesAndCounts(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)
	a, b := seedPair(t, dbase)
	c := testutil.ActiveUser(t, dbase, 3, db.GenderFemale, db.GoalFriendship)

	_, _, err := repo.Add(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, _, err = repo.Add(ctx, b.ID, a.ID)
	require.NoError(t, err)
	_, _, err = repo.Add(ctx, a.ID, c.ID)
	require.NoError(t, err)

	matches, err := repo.Matches(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, b.ID, matches[0].ToUserID)
	assert.Equal(t, b.Name, matches[0].PeerName)

	total, mutual, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), mutual)
}
