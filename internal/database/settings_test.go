package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/models"
)

func TestGetAndUpsertSystemSetting(t *testing.T) {
	db := openSettingsTestDB(t)

	value, err := GetSystemSetting(context.Background(), db, "missing")
	require.NoError(t, err)
	require.Equal(t, "", value)

	require.NoError(t, UpsertSystemSetting(context.Background(), db, "sample", "value1"))

	retrieved, err := GetSystemSetting(context.Background(), db, "sample")
	require.NoError(t, err)
	require.Equal(t, "value1", retrieved)

	require.NoError(t, UpsertSystemSetting(context.Background(), db, "sample", "value2"))

	retrieved, err = GetSystemSetting(context.Background(), db, "sample")
	require.NoError(t, err)
	require.Equal(t, "value2", retrieved)
}

func TestEnsureJWTSecret(t *testing.T) {
	db := openSettingsTestDB(t)

	configured, err := EnsureJWTSecret(context.Background(), db, "from-config")
	require.NoError(t, err)
	require.Equal(t, "from-config", configured)

	// A configured secret is never persisted.
	stored, err := GetSystemSetting(context.Background(), db, JWTSecretSetting)
	require.NoError(t, err)
	require.Equal(t, "", stored)

	generated, err := EnsureJWTSecret(context.Background(), db, "")
	require.NoError(t, err)
	require.NotEmpty(t, generated)

	again, err := EnsureJWTSecret(context.Background(), db, "")
	require.NoError(t, err)
	require.Equal(t, generated, again, "expected generated secret to be stable across calls")
}

func openSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.SystemSetting{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
