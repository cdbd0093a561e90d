package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jansathi/portal/internal/handlers/testutil"
	"github.com/jansathi/portal/internal/models"
)

func fullProfilePayload() map[string]any {
	address := map[string]string{
		"street":  "14 MG Road",
		"city":    "Pune",
		"state":   "Maharashtra",
		"pincode": "411001",
	}
	return map[string]any{
		"name":                   "Asha Citizen",
		"age":                    30,
		"gender":                 models.GenderFemale,
		"marital_status":         models.MaritalMarried,
		"occupation":             "teacher",
		"education":              "graduate",
		"is_government_employee": true,
		"permanent_address":      address,
		"current_address":        address,
		"spouse_name":            "Ravi Citizen",
		"children":               []map[string]any{{"gender": "female", "age": 4}},
	}
}

func TestProfileRequiresAuthentication(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/profile", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
}

func TestProfileCompletionRisesToFull(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateCitizen("a-strong-password")
	token := env.Login(user.Email, "a-strong-password")

	w := env.Request(http.MethodGet, "/api/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var before struct {
		CompletionScore int `json:"completion_score"`
	}
	testutil.DecodeInto(t, resp.Data, &before)
	require.Less(t, before.CompletionScore, 100)

	w = env.Request(http.MethodPut, "/api/profile", fullProfilePayload(), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp = testutil.DecodeResponse(t, w)
	var after struct {
		User            models.User `json:"user"`
		CompletionScore int         `json:"completion_score"`
	}
	testutil.DecodeInto(t, resp.Data, &after)
	require.Equal(t, 100, after.CompletionScore)
	require.Equal(t, "Asha Citizen", after.User.Name)
	require.Equal(t, models.MaritalMarried, after.User.MaritalStatus)
	require.Len(t, after.User.Children, 1)
}

func TestProfileUpdateValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateCitizen("a-strong-password")
	token := env.Login(user.Email, "a-strong-password")

	payload := fullProfilePayload()
	payload["name"] = "A"

	w := env.Request(http.MethodPut, "/api/profile", payload, token)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}

func TestRecommendationsMatchProfile(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateCitizen("a-strong-password")
	token := env.Login(user.Email, "a-strong-password")

	w := env.Request(http.MethodPut, "/api/profile", fullProfilePayload(), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/profile/recommendations", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var body struct {
		Recommendations []struct {
			Title string `json:"title"`
		} `json:"recommendations"`
	}
	testutil.DecodeInto(t, resp.Data, &body)

	titles := make([]string, 0, len(body.Recommendations))
	for _, entry := range body.Recommendations {
		titles = append(titles, entry.Title)
	}
	// A 30-year-old married woman matches the full seeded catalog, including
	// the marriage-gated schemes.
	require.Contains(t, titles, "National Health Shield")
	require.Contains(t, titles, "Family Life Secure")
	require.Contains(t, titles, "Child Education Grant")
}

func TestRecommendationsSkipMarriageGatedSchemesForSingles(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateCitizen("a-strong-password")
	token := env.Login(user.Email, "a-strong-password")

	payload := fullProfilePayload()
	payload["marital_status"] = models.MaritalSingle
	delete(payload, "spouse_name")
	delete(payload, "children")

	w := env.Request(http.MethodPut, "/api/profile", payload, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/profile/recommendations", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var body struct {
		Recommendations []struct {
			Title string `json:"title"`
		} `json:"recommendations"`
	}
	testutil.DecodeInto(t, resp.Data, &body)

	for _, entry := range body.Recommendations {
		require.NotEqual(t, "Family Life Secure", entry.Title)
		require.NotEqual(t, "Child Education Grant", entry.Title)
	}
}
