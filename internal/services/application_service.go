package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/models"
	"github.com/jansathi/portal/internal/realtime"
	apperrors "github.com/jansathi/portal/pkg/errors"
)

// SubmitApplicationInput is a citizen's policy suggestion.
type SubmitApplicationInput struct {
	UserID        string
	Title         string
	Description   string
	Justification string
}

// ApplicationView joins an application with its applicant for admin listings.
type ApplicationView struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Justification  string    `json:"justification"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ApplicantID    string    `json:"applicant_id"`
	ApplicantName  string    `json:"applicant_name"`
	ApplicantEmail string    `json:"applicant_email"`
}

// ApplicationService manages citizen policy applications. Applications form
// an audit trail: they move pending to approved or rejected and are never
// deleted.
type ApplicationService struct {
	db  *gorm.DB
	hub *realtime.Hub
}

// NewApplicationService constructs an ApplicationService. The hub may be nil.
func NewApplicationService(db *gorm.DB, hub *realtime.Hub) (*ApplicationService, error) {
	if db == nil {
		return nil, errors.New("application service: db is required")
	}
	return &ApplicationService{db: db, hub: hub}, nil
}

// Submit records a new application in the pending state.
func (s *ApplicationService) Submit(ctx context.Context, input SubmitApplicationInput) (*models.PolicyApplication, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewBadRequest("Title and description are required")
	}

	application := models.PolicyApplication{
		UserID:        userID,
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Justification: strings.TrimSpace(input.Justification),
		Status:        models.ApplicationPending,
	}
	if err := s.db.WithContext(ctx).Create(&application).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	s.notify("application.submitted", &application)
	return &application, nil
}

// ListForUser returns the caller's own applications, newest first.
func (s *ApplicationService) ListForUser(ctx context.Context, userID string) ([]models.PolicyApplication, error) {
	ctx = ensureContext(ctx)

	var applications []models.PolicyApplication
	err := s.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at DESC").
		Find(&applications).Error
	if err != nil {
		return nil, fmt.Errorf("application service: list for user: %w", err)
	}
	return applications, nil
}

// ListAll returns every application with applicant details, newest first.
// Admin surface only.
func (s *ApplicationService) ListAll(ctx context.Context) ([]ApplicationView, error) {
	ctx = ensureContext(ctx)

	var views []ApplicationView
	err := s.db.WithContext(ctx).
		Model(&models.PolicyApplication{}).
		Select("policy_applications.id, policy_applications.title, policy_applications.description, " +
			"policy_applications.justification, policy_applications.status, policy_applications.created_at, " +
			"policy_applications.updated_at, users.id AS applicant_id, users.name AS applicant_name, " +
			"users.email AS applicant_email").
		Joins("LEFT JOIN users ON users.id = policy_applications.user_id").
		Order("policy_applications.created_at DESC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("application service: list all: %w", err)
	}
	return views, nil
}

// UpdateStatus resolves a pending application. Only pending applications can
// move, and only to approved or rejected.
func (s *ApplicationService) UpdateStatus(ctx context.Context, applicationID, status string) (*models.PolicyApplication, error) {
	ctx = ensureContext(ctx)

	status = strings.ToLower(strings.TrimSpace(status))
	if status != models.ApplicationApproved && status != models.ApplicationRejected {
		return nil, apperrors.NewBadRequest("Applications can only be approved or rejected")
	}

	var application models.PolicyApplication
	if err := s.db.WithContext(ctx).First(&application, "id = ?", strings.TrimSpace(applicationID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	if application.Status != models.ApplicationPending {
		return nil, apperrors.NewBadRequest("Only pending applications can be resolved")
	}

	if err := s.db.WithContext(ctx).Model(&application).Update("status", status).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	application.Status = status

	s.notify("application.resolved", &application)
	return &application, nil
}

func (s *ApplicationService) notify(event string, application *models.PolicyApplication) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastStream(realtime.StreamApplications, realtime.Message{
		Event: event,
		Data:  application,
	})
}
