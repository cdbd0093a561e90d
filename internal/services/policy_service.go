package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/models"
	apperrors "github.com/jansathi/portal/pkg/errors"
)

// PolicySummary is the public projection of a votable policy. Tallies are
// deliberately absent; they stay hidden until the policy completes.
type PolicySummary struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"short_description"`
	Category         string    `json:"category"`
	VotingStartDate  time.Time `json:"voting_start_date"`
	VotingEndDate    time.Time `json:"voting_end_date"`
}

// CreatePolicyInput defines the attributes of a new policy proposal.
type CreatePolicyInput struct {
	Title            string
	Description      string
	ShortDescription string
	Category         string
	VotingStartDate  time.Time
	VotingEndDate    time.Time
	Activate         bool
}

// PolicyService manages the votable policy catalog.
type PolicyService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPolicyService constructs a PolicyService.
func NewPolicyService(db *gorm.DB) (*PolicyService, error) {
	if db == nil {
		return nil, errors.New("policy service: db is required")
	}
	return &PolicyService{db: db, now: time.Now}, nil
}

// Create registers a policy proposal, optionally activating it immediately.
func (s *PolicyService) Create(ctx context.Context, input CreatePolicyInput) (*models.Policy, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("Policy title is required")
	}
	if strings.TrimSpace(input.Description) == "" || strings.TrimSpace(input.ShortDescription) == "" {
		return nil, apperrors.NewBadRequest("Policy description and short description are required")
	}
	if !containsString(models.PolicyCategories, input.Category) {
		return nil, apperrors.NewBadRequest("Unknown policy category")
	}
	if input.VotingStartDate.IsZero() || input.VotingEndDate.IsZero() || !input.VotingEndDate.After(input.VotingStartDate) {
		return nil, apperrors.NewBadRequest("Voting window must end after it starts")
	}

	status := models.PolicyStatusDraft
	if input.Activate {
		status = models.PolicyStatusActive
	}

	policy := models.Policy{
		Title:            title,
		Description:      strings.TrimSpace(input.Description),
		ShortDescription: strings.TrimSpace(input.ShortDescription),
		Category:         input.Category,
		VotingStartDate:  input.VotingStartDate.UTC(),
		VotingEndDate:    input.VotingEndDate.UTC(),
		Status:           status,
	}
	if err := s.db.WithContext(ctx).Create(&policy).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("A policy with this title already exists")
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return &policy, nil
}

// policyTransitions is the allowed lifecycle edge set.
var policyTransitions = map[string][]string{
	models.PolicyStatusDraft:     {models.PolicyStatusActive, models.PolicyStatusArchived},
	models.PolicyStatusActive:    {models.PolicyStatusCompleted},
	models.PolicyStatusCompleted: {models.PolicyStatusArchived},
}

// UpdateStatus moves a policy along its lifecycle. Illegal transitions are
// rejected rather than coerced.
func (s *PolicyService) UpdateStatus(ctx context.Context, policyID, status string) (*models.Policy, error) {
	ctx = ensureContext(ctx)

	var policy models.Policy
	if err := s.db.WithContext(ctx).First(&policy, "id = ?", strings.TrimSpace(policyID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	status = strings.ToLower(strings.TrimSpace(status))
	if !containsString(policyTransitions[policy.Status], status) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("Cannot move a %s policy to %s", policy.Status, status))
	}

	if err := s.db.WithContext(ctx).Model(&policy).Update("status", status).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	policy.Status = status
	return &policy, nil
}

// ListActive returns the public projection of policies currently open for
// voting, newest window first.
func (s *PolicyService) ListActive(ctx context.Context) ([]PolicySummary, error) {
	ctx = ensureContext(ctx)

	var policies []models.Policy
	err := s.db.WithContext(ctx).
		Where("status = ?", models.PolicyStatusActive).
		Order("voting_end_date ASC").
		Find(&policies).Error
	if err != nil {
		return nil, fmt.Errorf("policy service: list active: %w", err)
	}

	summaries := make([]PolicySummary, 0, len(policies))
	for _, p := range policies {
		summaries = append(summaries, PolicySummary{
			ID:               p.ID,
			Title:            p.Title,
			ShortDescription: p.ShortDescription,
			Category:         p.Category,
			VotingStartDate:  p.VotingStartDate,
			VotingEndDate:    p.VotingEndDate,
		})
	}
	return summaries, nil
}

// ListAll returns every policy including tallies. Admin surface only.
func (s *PolicyService) ListAll(ctx context.Context) ([]models.Policy, error) {
	ctx = ensureContext(ctx)

	var policies []models.Policy
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("policy service: list all: %w", err)
	}
	return policies, nil
}

// Get returns a single policy without any projection. Admin surface only.
func (s *PolicyService) Get(ctx context.Context, policyID string) (*models.Policy, error) {
	ctx = ensureContext(ctx)

	var policy models.Policy
	if err := s.db.WithContext(ctx).First(&policy, "id = ?", strings.TrimSpace(policyID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return &policy, nil
}

// Categories returns the closed category vocabulary.
func (s *PolicyService) Categories() []string {
	out := make([]string, len(models.PolicyCategories))
	copy(out, models.PolicyCategories)
	return out
}

// CloseExpired completes every active policy whose voting window has passed.
// Run from the maintenance scheduler.
func (s *PolicyService) CloseExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).Model(&models.Policy{}).
		Where("status = ? AND voting_end_date < ?", models.PolicyStatusActive, s.now().UTC()).
		Update("status", models.PolicyStatusCompleted)
	if res.Error != nil {
		return 0, fmt.Errorf("policy service: close expired: %w", res.Error)
	}
	return res.RowsAffected, nil
}
