package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jansathi/portal/internal/handlers/testutil"
	"github.com/jansathi/portal/internal/models"
)

func submitApplication(t *testing.T, env *testutil.Env, token, title string) string {
	t.Helper()

	w := env.Request(http.MethodPost, "/api/applications", map[string]string{
		"title":         title,
		"description":   "A citizen proposal that deserves a fair review.",
		"justification": "It would help my district.",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var body struct {
		Application models.PolicyApplication `json:"application"`
	}
	testutil.DecodeInto(t, resp.Data, &body)
	require.Equal(t, models.ApplicationPending, body.Application.Status)
	return body.Application.ID
}

func TestSubmitAndListOwnApplications(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateCitizen("a-strong-password")
	other := env.CreateCitizen("a-strong-password")

	token := env.Login(user.Email, "a-strong-password")
	otherToken := env.Login(other.Email, "a-strong-password")

	id := submitApplication(t, env, token, "Streetlight Repair Programme")

	w := env.Request(http.MethodGet, "/api/applications", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	var mine struct {
		Applications []models.PolicyApplication `json:"applications"`
	}
	testutil.DecodeInto(t, resp.Data, &mine)
	require.Len(t, mine.Applications, 1)
	require.Equal(t, id, mine.Applications[0].ID)

	// Another citizen never sees it.
	w = env.Request(http.MethodGet, "/api/applications", nil, otherToken)
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.DecodeResponse(t, w)
	var theirs struct {
		Applications []models.PolicyApplication `json:"applications"`
	}
	testutil.DecodeInto(t, resp.Data, &theirs)
	require.Empty(t, theirs.Applications)
}

func TestSubmitApplicationValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateCitizen("a-strong-password")
	token := env.Login(user.Email, "a-strong-password")

	w := env.Request(http.MethodPost, "/api/applications", map[string]string{
		"title":       "Nope",
		"description": "Too short a title.",
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}

func TestApplicationsRequireAuthentication(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/applications", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
}
