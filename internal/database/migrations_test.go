package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jansathi/portal/internal/models"
)

func TestAutoMigrateCreatesCoreTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.User{},
		&models.LoginRecord{},
		&models.AdminAccount{},
		&models.AdminLoginLocation{},
		&models.Policy{},
		&models.PolicyVote{},
		&models.PolicyApplication{},
		&models.RecommendedPolicy{},
		&models.CacheEntry{},
		&models.SystemSetting{},
	}

	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}
}

func TestPolicyVoteUniqueIndex(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	first := models.PolicyVote{PolicyID: "11111111-1111-1111-1111-111111111111", UserID: "22222222-2222-2222-2222-222222222222", Choice: models.VoteYes}
	require.NoError(t, db.Create(&first).Error)

	duplicate := models.PolicyVote{PolicyID: first.PolicyID, UserID: first.UserID, Choice: models.VoteNo}
	require.Error(t, db.Create(&duplicate).Error, "expected composite unique index to reject second vote")

	other := models.PolicyVote{PolicyID: first.PolicyID, UserID: "33333333-3333-3333-3333-333333333333", Choice: models.VoteNo}
	require.NoError(t, db.Create(&other).Error)
}
