package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jansathi/portal/internal/cache"
	testutil "github.com/jansathi/portal/internal/database/testutil"
	"github.com/jansathi/portal/internal/models"
	"github.com/jansathi/portal/internal/services"
)

func TestRunOnceReapsExpiredChallenges(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := cache.NewDatabaseStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "challenge:otp:stale", []byte("x"), time.Millisecond))
	require.NoError(t, store.Set(ctx, "challenge:otp:fresh", []byte("y"), time.Hour))
	time.Sleep(5 * time.Millisecond)

	cleaner := NewCleaner(store, nil)
	require.NoError(t, cleaner.RunOnce(ctx))

	var count int64
	require.NoError(t, db.Model(&models.CacheEntry{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRunOnceSweepsMemoryStore(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "challenge:captcha:stale", []byte("x"), time.Millisecond))
	require.NoError(t, store.Set(ctx, "challenge:captcha:fresh", []byte("y"), time.Hour))
	time.Sleep(5 * time.Millisecond)

	cleaner := NewCleaner(store, nil)
	require.NoError(t, cleaner.RunOnce(ctx))

	_, ok, err := store.Get(ctx, "challenge:captcha:fresh")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRunOnceClosesExpiredPolicies(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	policies, err := services.NewPolicyService(db)
	require.NoError(t, err)

	now := time.Now().UTC()
	expired := models.Policy{
		Title:            "Window Closed",
		Description:      "desc",
		ShortDescription: "short",
		Category:         "Environment",
		VotingStartDate:  now.Add(-48 * time.Hour),
		VotingEndDate:    now.Add(-time.Hour),
		Status:           models.PolicyStatusActive,
	}
	require.NoError(t, db.Create(&expired).Error)

	cleaner := NewCleaner(nil, policies)
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var stored models.Policy
	require.NoError(t, db.First(&stored, "id = ?", expired.ID).Error)
	require.Equal(t, models.PolicyStatusCompleted, stored.Status)
}

func TestStartRegistersJobs(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := cache.NewDatabaseStore(db)

	cleaner := NewCleaner(store, nil, WithChallengeSchedule("@every 1h"))
	require.NoError(t, cleaner.Start())

	done := cleaner.Stop()
	select {
	case <-done.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
