package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/services"
	"github.com/jansathi/portal/pkg/errors"
	"github.com/jansathi/portal/pkg/response"
)

// PolicyHandler exposes the citizen-facing policy and voting surface.
type PolicyHandler struct {
	policies *services.PolicyService
	votes    *services.VoteService
}

func NewPolicyHandler(policies *services.PolicyService, votes *services.VoteService) *PolicyHandler {
	return &PolicyHandler{policies: policies, votes: votes}
}

// GET /api/policies
func (h *PolicyHandler) ListActive(c *gin.Context) {
	summaries, err := h.policies.ListActive(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"policies": summaries})
}

// GET /api/categories
func (h *PolicyHandler) Categories(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"categories": h.policies.Categories()})
}

type voteRequest struct {
	Choice string `json:"choice" validate:"required,oneof=yes no"`
}

// POST /api/policies/:id/vote
func (h *PolicyHandler) Vote(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req voteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.votes.CastVote(requestContext(c), c.Param("id"), userID, req.Choice); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"voted": true, "choice": req.Choice})
}

// GET /api/policies/:id/vote
func (h *PolicyHandler) VoteStatus(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	voted, err := h.votes.HasVoted(requestContext(c), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"voted": voted})
}

// GET /api/policies/:id/results
func (h *PolicyHandler) Results(c *gin.Context) {
	results, err := h.votes.Results(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, results)
}
