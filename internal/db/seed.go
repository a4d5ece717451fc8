package db

import (
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchmaker/internal/logger"
)

var seedGoals = []Goal{GoalRomantic, GoalFriendship, GoalBusiness}

// SeedTestData resets the database and populates it with demo profiles.
//
// Behavior:
//  1. Clears likes, skips, moderation items and users.
//  2. Creates 20 active users (10 male, 10 female), each with an approved photo submission.
//  3. Adds two pending submissions so the moderation queue is never empty.
//  4. Generates random likes; every 3rd like is reciprocated, and both legs of
//     a reciprocated pair are marked mutual.
//
// Compatible with MySQL, Postgres and SQLite.
func SeedTestData(database *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := clearAll(database); err != nil {
		return err
	}
	logger.Info("cleared existing data")

	users := make([]User, 0, 20)
	for i := 1; i <= 20; i++ {
		gender := GenderMale
		if i > 10 {
			gender = GenderFemale
		}
		users = append(users, User{
			ExternalID:  int64(100000 + i),
			Name:        fmt.Sprintf("user%d", i),
			Age:         MinAge + r.Intn(30),
			Gender:      gender,
			Goal:        seedGoals[i%len(seedGoals)],
			Description: fmt.Sprintf("demo profile %d", i),
			PhotoRef:    fmt.Sprintf("seed-photo-%d", i),
			IsActive:    true,
		})
	}
	if err := database.Create(&users).Error; err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	now := time.Now().UTC()
	items := make([]ModerationItem, 0, len(users)+2)
	for _, u := range users {
		items = append(items, ModerationItem{
			UserID:    u.ID,
			PhotoRef:  u.PhotoRef,
			Status:    ModerationApproved,
			DecidedAt: &now,
		})
	}
	pending := true
	for _, u := range users[:2] {
		items = append(items, ModerationItem{
			UserID:   u.ID,
			PhotoRef: u.PhotoRef + "-new",
			Pending:  &pending,
			Status:   ModerationPending,
		})
	}
	if err := database.Create(&items).Error; err != nil {
		return fmt.Errorf("failed to seed moderation: %w", err)
	}
	logger.Info("seeded users", "count", len(users))

	counter := 0
	for _, actor := range users {
		for j := 0; j < 5; j++ {
			recipient := users[r.Intn(len(users))]
			if recipient.ID == actor.ID || recipient.Gender == actor.Gender {
				continue
			}
			if err := seedLike(database, actor.ID, recipient.ID); err != nil {
				return err
			}
			// guarantee a mutual pair every 3rd like
			if counter%3 == 0 {
				if err := seedLike(database, recipient.ID, actor.ID); err != nil {
					return err
				}
			}
			counter++
		}
	}
	logger.Info("seeded likes", "count", counter)

	return nil
}

func seedLike(database *gorm.DB, from, to uint64) error {
	like := Like{FromUserID: from, ToUserID: to}
	if err := database.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
		return fmt.Errorf("failed to seed like: %w", err)
	}
	var reverse int64
	if err := database.Model(&Like{}).
		Where("from_user_id = ? AND to_user_id = ?", to, from).
		Count(&reverse).Error; err != nil || reverse == 0 {
		return err
	}
	return database.Model(&Like{}).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", from, to, to, from).
		Update("is_mutual", true).Error
}

func clearAll(database *gorm.DB) error {
	for _, table := range []string{"likes", "skips", "moderation_items", "users"} {
		if err := database.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences
	switch database.Dialector.Name() {
	case "mysql":
		database.Exec("ALTER TABLE likes AUTO_INCREMENT = 1")
		database.Exec("ALTER TABLE moderation_items AUTO_INCREMENT = 1")
		database.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		database.Exec("DELETE FROM sqlite_sequence WHERE name IN ('likes', 'moderation_items', 'users')")
	}
	return nil
}
