package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jansathi/portal/internal/handlers/testutil"
	"github.com/jansathi/portal/internal/models"
	"github.com/jansathi/portal/internal/services"
)

func TestAdminRoutesRejectCitizenTokens(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateCitizen("a-strong-password")
	token := env.Login(user.Email, "a-strong-password")

	for _, path := range []string{
		"/api/admin/stats",
		"/api/admin/policies",
		"/api/admin/applications",
		"/api/admin/recommendations",
	} {
		w := env.Request(http.MethodGet, path, nil, token)
		require.Equal(t, http.StatusForbidden, w.Code, "%s: %s", path, w.Body.String())
	}
}

func TestAdminRoutesRejectMissingToken(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/admin/stats", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
}

func TestAdminPolicyLifecycleOverHTTP(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateAdmin("an-admin-password")
	token := env.AdminLogin(admin.Email, "an-admin-password")

	now := time.Now().UTC()
	w := env.Request(http.MethodPost, "/api/admin/policies", map[string]any{
		"title":             "Clean River Initiative",
		"description":       "Fund systematic cleanup of urban river stretches.",
		"short_description": "River cleanup funding.",
		"category":          "Environment",
		"voting_start_date": now.Add(-time.Hour).Format(time.RFC3339),
		"voting_end_date":   now.Add(72 * time.Hour).Format(time.RFC3339),
		"activate":          true,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var created struct {
		Policy models.Policy `json:"policy"`
	}
	testutil.DecodeInto(t, resp.Data, &created)
	require.Equal(t, models.PolicyStatusActive, created.Policy.Status)

	w = env.Request(http.MethodGet, "/api/admin/policies/"+created.Policy.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPatch, "/api/admin/policies/"+created.Policy.ID+"/status", map[string]string{
		"status": models.PolicyStatusCompleted,
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp = testutil.DecodeResponse(t, w)
	var updated struct {
		Policy models.Policy `json:"policy"`
	}
	testutil.DecodeInto(t, resp.Data, &updated)
	require.Equal(t, models.PolicyStatusCompleted, updated.Policy.Status)

	// Completed never reopens.
	w = env.Request(http.MethodPatch, "/api/admin/policies/"+created.Policy.ID+"/status", map[string]string{
		"status": models.PolicyStatusActive,
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestAdminCreatePolicyValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateAdmin("an-admin-password")
	token := env.AdminLogin(admin.Email, "an-admin-password")

	now := time.Now().UTC()
	w := env.Request(http.MethodPost, "/api/admin/policies", map[string]any{
		"title":             "Backwards Window Policy",
		"description":       "The voting window ends before it starts.",
		"short_description": "Broken window.",
		"category":          "Economy",
		"voting_start_date": now.Add(72 * time.Hour).Format(time.RFC3339),
		"voting_end_date":   now.Format(time.RFC3339),
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}

func TestAdminReviewsApplications(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateCitizen("a-strong-password")
	citizenToken := env.Login(user.Email, "a-strong-password")
	admin := env.CreateAdmin("an-admin-password")
	adminToken := env.AdminLogin(admin.Email, "an-admin-password")

	id := submitApplication(t, env, citizenToken, "District Library Upgrade")

	w := env.Request(http.MethodGet, "/api/admin/applications", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var listing struct {
		Applications []services.ApplicationView `json:"applications"`
	}
	testutil.DecodeInto(t, resp.Data, &listing)
	require.Len(t, listing.Applications, 1)
	require.Equal(t, user.Name, listing.Applications[0].ApplicantName)
	require.Equal(t, user.Email, listing.Applications[0].ApplicantEmail)

	w = env.Request(http.MethodPatch, "/api/admin/applications/"+id+"/status", map[string]string{
		"status": models.ApplicationApproved,
	}, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A resolved application cannot be decided again.
	w = env.Request(http.MethodPatch, "/api/admin/applications/"+id+"/status", map[string]string{
		"status": models.ApplicationRejected,
	}, adminToken)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestAdminDashboardStats(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateCitizen("a-strong-password")
	admin := env.CreateAdmin("an-admin-password")
	token := env.AdminLogin(admin.Email, "an-admin-password")

	w := env.Request(http.MethodGet, "/api/admin/stats", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var stats struct {
		TotalUsers int64 `json:"total_users"`
	}
	testutil.DecodeInto(t, resp.Data, &stats)
	require.EqualValues(t, 1, stats.TotalUsers)
}

func TestAdminCatalogListing(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.CreateAdmin("an-admin-password")
	token := env.AdminLogin(admin.Email, "an-admin-password")

	w := env.Request(http.MethodGet, "/api/admin/recommendations", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var body struct {
		Recommendations []models.RecommendedPolicy `json:"recommendations"`
	}
	testutil.DecodeInto(t, resp.Data, &body)
	require.NotEmpty(t, body.Recommendations)
}
