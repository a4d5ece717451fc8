package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchmaker/internal/db"
	"github.com/oggyb/matchmaker/internal/testutil"
)

func TestSeedTestData(t *testing.T) {
	database := testutil.NewDB(t)

	// run twice: the second run must start from a clean slate
	require.NoError(t, db.SeedTestData(database))
	require.NoError(t, db.SeedTestData(database))

	var users int64
	require.NoError(t, database.Model(&db.User{}).Where("is_active = ?", true).Count(&users).Error)
	assert.Equal(t, int64(20), users)

	var pending int64
	require.NoError(t, database.Model(&db.ModerationItem{}).Where("status = ?", db.ModerationPending).Count(&pending).Error)
	assert.Equal(t, int64(2), pending)

	// every mutual leg has its reverse leg, also mutual
	var likes []db.Like
	require.NoError(t, database.Where("is_mutual = ?", true).Find(&likes).Error)
	for _, l := range likes {
		var reverse db.Like
		require.NoError(t, database.Where("from_user_id = ? AND to_user_id = ?", l.ToUserID, l.FromUserID).First(&reverse).Error)
		assert.True(t, reverse.IsMutual)
	}
}

func TestUserProfileRules(t *testing.T) {
	u := db.User{Name: "Al", Age: 18, Gender: db.GenderMale, Goal: db.GoalBusiness}
	assert.True(t, u.ProfileComplete())
	assert.False(t, u.Eligible())
	assert.Empty(t, u.ValidateProfile())

	u.IsActive = true
	assert.Contains(t, u.ValidateProfile(), "incomplete profile cannot be active")

	u.PhotoRef = "p"
	assert.Empty(t, u.ValidateProfile())

	bad := db.User{Age: 100, Gender: "x", Goal: "y"}
	assert.Len(t, bad.ValidateProfile(), 3)

	assert.Equal(t, db.GenderFemale, db.GenderMale.Opposite())
	assert.Equal(t, db.GenderUnset, db.GenderUnset.Opposite())
	assert.True(t, db.ModerationRejected.Terminal())
	assert.False(t, db.ModerationPending.Terminal())
}

func TestDialector(t *testing.T) {
	for _, name := range []string{"", "mysql", "postgres", "sqlite"} {
		_, err := db.Dialector(name, "dsn")
		assert.NoError(t, err, name)
	}
	_, err := db.Dialector("oracle", "dsn")
	assert.Error(t, err)
}
