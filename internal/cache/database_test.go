package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jansathi/portal/internal/models"
)

func openCacheTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CacheEntry{}))

	t.Cleanup(func() {
		require.NoError(t, db.Exec("DELETE FROM cache_entries").Error)
	})

	return db
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	store := NewDatabaseStore(openCacheTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "challenge:abc", []byte(`{"kind":"captcha"}`), time.Minute))

	value, ok, err := store.Get(ctx, "challenge:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"kind":"captcha"}`, string(value))

	// Overwrite must update in place, not error on the primary key.
	require.NoError(t, store.Set(ctx, "challenge:abc", []byte(`{"kind":"otp"}`), time.Minute))

	value, ok, err = store.Get(ctx, "challenge:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"kind":"otp"}`, string(value))

	require.NoError(t, store.Delete(ctx, "challenge:abc"))

	_, ok, err = store.Get(ctx, "challenge:abc")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreGetExpired(t *testing.T) {
	db := openCacheTestDB(t)
	store := NewDatabaseStore(db)
	ctx := context.Background()

	entry := models.CacheEntry{
		Key:       "stale",
		Value:     []byte("v"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, db.Create(&entry).Error)

	_, ok, err := store.Get(ctx, "stale")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreTakeSingleUse(t *testing.T) {
	store := NewDatabaseStore(openCacheTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "otp:tok", []byte("735012"), time.Minute))

	value, ok, err := store.Take(ctx, "otp:tok")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "735012", string(value))

	_, ok, err = store.Take(ctx, "otp:tok")
	require.NoError(t, err)
	require.False(t, ok, "token must be consumed by the first take")
}

func TestDatabaseStoreTakeExpiredConsumes(t *testing.T) {
	db := openCacheTestDB(t)
	store := NewDatabaseStore(db)
	ctx := context.Background()

	entry := models.CacheEntry{
		Key:       "old",
		Value:     []byte("v"),
		ExpiresAt: time.Now().Add(-time.Second),
	}
	require.NoError(t, db.Create(&entry).Error)

	_, ok, err := store.Take(ctx, "old")
	require.NoError(t, err)
	require.False(t, ok)

	var count int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Where("key = ?", "old").Count(&count).Error)
	require.Zero(t, count, "expired row is removed even though nothing was returned")
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	store := NewDatabaseStore(openCacheTestDB(t))
	ctx := context.Background()

	count, _, err := store.IncrementWithTTL(ctx, "rate:ip", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, _, err = store.IncrementWithTTL(ctx, "rate:ip", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestDatabaseStoreDeleteExpired(t *testing.T) {
	db := openCacheTestDB(t)
	store := NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.CacheEntry{Key: "gone", Value: []byte("1"), ExpiresAt: time.Now().Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.CacheEntry{Key: "kept", Value: []byte("2"), ExpiresAt: time.Now().Add(time.Hour)}).Error)

	removed, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, ok, err := store.Get(ctx, "kept")
	require.NoError(t, err)
	require.True(t, ok)
}
