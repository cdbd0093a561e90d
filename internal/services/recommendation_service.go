package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/models"
	apperrors "github.com/jansathi/portal/pkg/errors"
)

// RecommendationService matches catalog entries against a citizen's profile.
type RecommendationService struct {
	db *gorm.DB
}

// NewRecommendationService constructs a RecommendationService.
func NewRecommendationService(db *gorm.DB) (*RecommendationService, error) {
	if db == nil {
		return nil, errors.New("recommendation service: db is required")
	}
	return &RecommendationService{db: db}, nil
}

// ListForUser returns catalog entries whose targeting filters match the
// user's profile, highest priority first. An incomplete profile matches
// fewer filters, never errors.
func (s *RecommendationService) ListForUser(ctx context.Context, userID string) ([]models.RecommendedPolicy, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", strings.TrimSpace(userID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	var catalog []models.RecommendedPolicy
	err := s.db.WithContext(ctx).
		Order("priority ASC, title ASC").
		Find(&catalog).Error
	if err != nil {
		return nil, fmt.Errorf("recommendation service: load catalog: %w", err)
	}

	matched := make([]models.RecommendedPolicy, 0, len(catalog))
	for _, entry := range catalog {
		if matches(&user, &entry) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// ListAll returns the full catalog for admin management.
func (s *RecommendationService) ListAll(ctx context.Context) ([]models.RecommendedPolicy, error) {
	ctx = ensureContext(ctx)

	var catalog []models.RecommendedPolicy
	if err := s.db.WithContext(ctx).Order("priority ASC, title ASC").Find(&catalog).Error; err != nil {
		return nil, fmt.Errorf("recommendation service: list all: %w", err)
	}
	return catalog, nil
}

// matches applies the targeting filters. Missing profile attributes fail
// only the filters that need them; filters left empty on the entry match
// everyone.
func matches(user *models.User, entry *models.RecommendedPolicy) bool {
	if entry.AgeMin > 0 || entry.AgeMax > 0 {
		if user.Age == nil {
			return false
		}
		age := *user.Age
		if entry.AgeMin > 0 && age < entry.AgeMin {
			return false
		}
		if entry.AgeMax > 0 && age > entry.AgeMax {
			return false
		}
	}

	if len(entry.SuitableFor) > 0 {
		if user.Gender == "" || !containsString(entry.SuitableFor, user.Gender) {
			return false
		}
	}

	if entry.MaritalStatus != "" && user.MaritalStatus != entry.MaritalStatus {
		return false
	}

	return true
}
