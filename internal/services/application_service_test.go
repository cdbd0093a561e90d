package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jansathi/portal/internal/database/testutil"
	"github.com/jansathi/portal/internal/models"
	apperrors "github.com/jansathi/portal/pkg/errors"
)

func submitApplication(t *testing.T, svc *ApplicationService, userID, title string) *models.PolicyApplication {
	t.Helper()

	application, err := svc.Submit(context.Background(), SubmitApplicationInput{
		UserID:        userID,
		Title:         title,
		Description:   "Extend the scheme to cover seasonal agricultural workers.",
		Justification: "Seasonal workers have no coverage between contracts.",
	})
	require.NoError(t, err)
	return application
}

func TestApplicationSubmitStartsPending(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewApplicationService(db, nil)
	require.NoError(t, err)

	user := seedProfileUser(t, db)
	application := submitApplication(t, svc, user.ID, "Seasonal Worker Cover")

	require.Equal(t, models.ApplicationPending, application.Status)
	require.Equal(t, user.ID, application.UserID)
}

func TestApplicationSubmitValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewApplicationService(db, nil)
	require.NoError(t, err)

	user := seedProfileUser(t, db)

	_, err = svc.Submit(context.Background(), SubmitApplicationInput{UserID: user.ID, Title: " "})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_FAILED", appErr.Code)

	_, err = svc.Submit(context.Background(), SubmitApplicationInput{Title: "No Caller"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestApplicationListForUserIsScoped(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewApplicationService(db, nil)
	require.NoError(t, err)

	asha := seedProfileUser(t, db)
	ravi := models.User{Name: "Ravi Citizen", Email: "ravi@example.com", MobileNumber: "9876500000", PasswordHash: "x"}
	require.NoError(t, db.Create(&ravi).Error)

	submitApplication(t, svc, asha.ID, "Asha's Request")
	submitApplication(t, svc, ravi.ID, "Ravi's Request")

	mine, err := svc.ListForUser(context.Background(), asha.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "Asha's Request", mine[0].Title)
}

func TestApplicationListAllIncludesApplicant(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewApplicationService(db, nil)
	require.NoError(t, err)

	user := seedProfileUser(t, db)
	submitApplication(t, svc, user.ID, "Joined Listing")

	views, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, user.Name, views[0].ApplicantName)
	require.Equal(t, user.Email, views[0].ApplicantEmail)
	require.Equal(t, models.ApplicationPending, views[0].Status)
}

func TestApplicationResolveOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewApplicationService(db, nil)
	require.NoError(t, err)

	user := seedProfileUser(t, db)
	application := submitApplication(t, svc, user.ID, "Resolve Me")

	resolved, err := svc.UpdateStatus(context.Background(), application.ID, models.ApplicationApproved)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationApproved, resolved.Status)

	// Resolved applications are immutable.
	_, err = svc.UpdateStatus(context.Background(), application.ID, models.ApplicationRejected)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_FAILED", appErr.Code)
}

func TestApplicationResolveValidatesStatus(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewApplicationService(db, nil)
	require.NoError(t, err)

	user := seedProfileUser(t, db)
	application := submitApplication(t, svc, user.ID, "Bad Status Probe")

	_, err = svc.UpdateStatus(context.Background(), application.ID, "pending")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)

	_, err = svc.UpdateStatus(context.Background(), "00000000-0000-0000-0000-000000000000", models.ApplicationApproved)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
