package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/models"
)

// GroupCount is one bucket of a grouped aggregation.
type GroupCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// PolicyTally is the per-policy vote summary shown on admin dashboards.
type PolicyTally struct {
	PolicyID string `json:"policy_id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	VotesYes int64  `json:"votes_yes"`
	VotesNo  int64  `json:"votes_no"`
}

// LoginPoint is one login-location sample for the heatmap.
type LoginPoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// DashboardStats aggregates the grouped counts the admin dashboards chart.
type DashboardStats struct {
	TotalUsers           int64         `json:"total_users"`
	VerifiedUsers        int64         `json:"verified_users"`
	UsersByGender        []GroupCount  `json:"users_by_gender"`
	UsersByOccupation    []GroupCount  `json:"users_by_occupation"`
	PoliciesByCategory   []GroupCount  `json:"policies_by_category"`
	PolicyTallies        []PolicyTally `json:"policy_tallies"`
	ApplicationsByStatus []GroupCount  `json:"applications_by_status"`
	CatalogByCategory    []GroupCount  `json:"catalog_by_category"`
	RecentLoginPoints    []LoginPoint  `json:"recent_login_points"`
}

// StatsService runs the grouped aggregation queries behind the admin
// dashboards.
type StatsService struct {
	db *gorm.DB
}

// NewStatsService constructs a StatsService.
func NewStatsService(db *gorm.DB) (*StatsService, error) {
	if db == nil {
		return nil, errors.New("stats service: db is required")
	}
	return &StatsService{db: db}, nil
}

// Dashboard collects every aggregate in one call.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	ctx = ensureContext(ctx)
	stats := &DashboardStats{}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("stats service: total users: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("is_verified = ?", true).Count(&stats.VerifiedUsers).Error; err != nil {
		return nil, fmt.Errorf("stats service: verified users: %w", err)
	}

	var err error
	if stats.UsersByGender, err = s.group(ctx, &models.User{}, "gender"); err != nil {
		return nil, err
	}
	if stats.UsersByOccupation, err = s.group(ctx, &models.User{}, "occupation"); err != nil {
		return nil, err
	}
	if stats.PoliciesByCategory, err = s.group(ctx, &models.Policy{}, "category"); err != nil {
		return nil, err
	}
	if stats.ApplicationsByStatus, err = s.group(ctx, &models.PolicyApplication{}, "status"); err != nil {
		return nil, err
	}
	if stats.CatalogByCategory, err = s.group(ctx, &models.RecommendedPolicy{}, "category"); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.Policy{}).
		Select("id AS policy_id, title, status, votes_yes, votes_no").
		Order("created_at DESC").
		Scan(&stats.PolicyTallies).Error
	if err != nil {
		return nil, fmt.Errorf("stats service: policy tallies: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&models.LoginRecord{}).
		Select("latitude, longitude, created_at").
		Order("created_at DESC").
		Limit(500).
		Scan(&stats.RecentLoginPoints).Error
	if err != nil {
		return nil, fmt.Errorf("stats service: login points: %w", err)
	}

	return stats, nil
}

func (s *StatsService) group(ctx context.Context, model any, column string) ([]GroupCount, error) {
	var buckets []GroupCount
	err := s.db.WithContext(ctx).Model(model).
		Select(column + " AS key, COUNT(*) AS count").
		Group(column).
		Order("count DESC").
		Scan(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("stats service: group by %s: %w", column, err)
	}
	return buckets, nil
}
