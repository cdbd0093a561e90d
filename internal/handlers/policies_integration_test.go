package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jansathi/portal/internal/handlers/testutil"
	"github.com/jansathi/portal/internal/models"
)

func createOpenPolicy(t *testing.T, env *testutil.Env, title string) *models.Policy {
	t.Helper()

	now := time.Now().UTC()
	policy := &models.Policy{
		Title:            title,
		Description:      "A policy proposal with a meaningful description.",
		ShortDescription: "A policy proposal.",
		Category:         "Healthcare",
		VotingStartDate:  now.Add(-time.Hour),
		VotingEndDate:    now.Add(24 * time.Hour),
		Status:           models.PolicyStatusActive,
	}
	require.NoError(t, env.DB.Create(policy).Error)
	return policy
}

func TestListActivePoliciesIsPublic(t *testing.T) {
	env := testutil.NewEnv(t)
	policy := createOpenPolicy(t, env, "Public Clinic Expansion")

	w := env.Request(http.MethodGet, "/api/policies", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var body struct {
		Policies []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"policies"`
	}
	testutil.DecodeInto(t, resp.Data, &body)
	require.Len(t, body.Policies, 1)
	require.Equal(t, policy.ID, body.Policies[0].ID)
}

func TestCategoriesEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/categories", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var body struct {
		Categories []string `json:"categories"`
	}
	testutil.DecodeInto(t, resp.Data, &body)
	require.ElementsMatch(t, models.PolicyCategories, body.Categories)
}

func TestVoteRequiresAuthentication(t *testing.T) {
	env := testutil.NewEnv(t)
	policy := createOpenPolicy(t, env, "Unauthenticated Vote Target")

	w := env.Request(http.MethodPost, "/api/policies/"+policy.ID+"/vote", map[string]string{"choice": "yes"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
}

func TestVoteOnceThenConflict(t *testing.T) {
	env := testutil.NewEnv(t)
	policy := createOpenPolicy(t, env, "Single Vote Guarantee")
	user := env.CreateCitizen("a-strong-password")
	token := env.Login(user.Email, "a-strong-password")

	w := env.Request(http.MethodGet, "/api/policies/"+policy.ID+"/vote", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	var status struct {
		Voted bool `json:"voted"`
	}
	testutil.DecodeInto(t, resp.Data, &status)
	require.False(t, status.Voted)

	w = env.Request(http.MethodPost, "/api/policies/"+policy.ID+"/vote", map[string]string{"choice": "yes"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/policies/"+policy.ID+"/vote", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &status)
	require.True(t, status.Voted)

	w = env.Request(http.MethodPost, "/api/policies/"+policy.ID+"/vote", map[string]string{"choice": "no"}, token)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	resp = testutil.DecodeResponse(t, w)
	require.Equal(t, "ALREADY_VOTED", resp.Error.Code)

	var refreshed models.Policy
	require.NoError(t, env.DB.First(&refreshed, "id = ?", policy.ID).Error)
	require.EqualValues(t, 1, refreshed.VotesYes)
	require.EqualValues(t, 0, refreshed.VotesNo)
}

func TestVoteRejectsInvalidChoice(t *testing.T) {
	env := testutil.NewEnv(t)
	policy := createOpenPolicy(t, env, "Invalid Choice Target")
	user := env.CreateCitizen("a-strong-password")
	token := env.Login(user.Email, "a-strong-password")

	w := env.Request(http.MethodPost, "/api/policies/"+policy.ID+"/vote", map[string]string{"choice": "maybe"}, token)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}

func TestVoteOnDraftPolicyRejected(t *testing.T) {
	env := testutil.NewEnv(t)
	policy := createOpenPolicy(t, env, "Draft Policy")
	require.NoError(t, env.DB.Model(policy).Update("status", models.PolicyStatusDraft).Error)

	user := env.CreateCitizen("a-strong-password")
	token := env.Login(user.Email, "a-strong-password")

	w := env.Request(http.MethodPost, "/api/policies/"+policy.ID+"/vote", map[string]string{"choice": "yes"}, token)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	require.Equal(t, "POLICY_NOT_VOTABLE", resp.Error.Code)
}

func TestResultsHiddenUntilVotingCloses(t *testing.T) {
	env := testutil.NewEnv(t)
	policy := createOpenPolicy(t, env, "Results Gate")
	user := env.CreateCitizen("a-strong-password")
	token := env.Login(user.Email, "a-strong-password")

	w := env.Request(http.MethodPost, "/api/policies/"+policy.ID+"/vote", map[string]string{"choice": "yes"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/policies/"+policy.ID+"/results", nil, token)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	require.NoError(t, env.DB.Model(policy).Update("status", models.PolicyStatusCompleted).Error)

	w = env.Request(http.MethodGet, "/api/policies/"+policy.ID+"/results", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	var results struct {
		PolicyID   string `json:"policy_id"`
		VotesYes   int64  `json:"votes_yes"`
		VotesNo    int64  `json:"votes_no"`
		TotalVotes int64  `json:"total_votes"`
	}
	testutil.DecodeInto(t, resp.Data, &results)
	require.Equal(t, policy.ID, results.PolicyID)
	require.EqualValues(t, 1, results.VotesYes)
	require.EqualValues(t, 0, results.VotesNo)
	require.EqualValues(t, 1, results.TotalVotes)
}

func TestVoteOnUnknownPolicy(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateCitizen("a-strong-password")
	token := env.Login(user.Email, "a-strong-password")

	w := env.Request(http.MethodPost, "/api/policies/no-such-policy/vote", map[string]string{"choice": "yes"}, token)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}
