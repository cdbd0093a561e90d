package database

import (
	"testing"

	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	db := openTestDB(t)

	if err := AutoMigrateAndSeed(db); err != nil {
		t.Fatalf("auto migrate and seed failed: %v", err)
	}

	var catalogCount int64
	if err := db.Model(&models.RecommendedPolicy{}).Count(&catalogCount).Error; err != nil {
		t.Fatalf("count recommendations: %v", err)
	}
	if catalogCount == 0 {
		t.Fatalf("expected recommendation catalog to be seeded")
	}

	// Seeding twice must not duplicate catalog entries.
	if err := SeedData(db); err != nil {
		t.Fatalf("re-seed failed: %v", err)
	}

	var recount int64
	if err := db.Model(&models.RecommendedPolicy{}).Count(&recount).Error; err != nil {
		t.Fatalf("recount recommendations: %v", err)
	}
	if recount != catalogCount {
		t.Fatalf("expected %d catalog entries after re-seed, got %d", catalogCount, recount)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
