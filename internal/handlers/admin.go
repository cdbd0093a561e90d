package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/services"
	"github.com/jansathi/portal/pkg/response"
)

// AdminHandler groups the management surface: dashboards, the policy
// lifecycle, application review, and the recommendation catalog.
type AdminHandler struct {
	policies        *services.PolicyService
	applications    *services.ApplicationService
	stats           *services.StatsService
	recommendations *services.RecommendationService
}

func NewAdminHandler(
	policies *services.PolicyService,
	applications *services.ApplicationService,
	stats *services.StatsService,
	recommendations *services.RecommendationService,
) *AdminHandler {
	return &AdminHandler{
		policies:        policies,
		applications:    applications,
		stats:           stats,
		recommendations: recommendations,
	}
}

// GET /api/admin/stats
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.stats.Dashboard(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

type createPolicyRequest struct {
	Title            string    `json:"title" validate:"required,min=5,max=200"`
	Description      string    `json:"description" validate:"required,min=10"`
	ShortDescription string    `json:"short_description" validate:"required,max=300"`
	Category         string    `json:"category" validate:"required"`
	VotingStartDate  time.Time `json:"voting_start_date" validate:"required"`
	VotingEndDate    time.Time `json:"voting_end_date" validate:"required"`
	Activate         bool      `json:"activate"`
}

// POST /api/admin/policies
func (h *AdminHandler) CreatePolicy(c *gin.Context) {
	var req createPolicyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	policy, err := h.policies.Create(requestContext(c), services.CreatePolicyInput{
		Title:            req.Title,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Category:         req.Category,
		VotingStartDate:  req.VotingStartDate,
		VotingEndDate:    req.VotingEndDate,
		Activate:         req.Activate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"policy": policy})
}

// GET /api/admin/policies
func (h *AdminHandler) ListPolicies(c *gin.Context) {
	policies, err := h.policies.ListAll(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"policies": policies})
}

// GET /api/admin/policies/:id
func (h *AdminHandler) GetPolicy(c *gin.Context) {
	policy, err := h.policies.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"policy": policy})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PATCH /api/admin/policies/:id/status
func (h *AdminHandler) UpdatePolicyStatus(c *gin.Context) {
	var req updateStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	policy, err := h.policies.UpdateStatus(requestContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"policy": policy})
}

// GET /api/admin/applications
func (h *AdminHandler) ListApplications(c *gin.Context) {
	applications, err := h.applications.ListAll(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"applications": applications})
}

// PATCH /api/admin/applications/:id/status
func (h *AdminHandler) ResolveApplication(c *gin.Context) {
	var req updateStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	application, err := h.applications.UpdateStatus(requestContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"application": application})
}

// GET /api/admin/recommendations
func (h *AdminHandler) ListCatalog(c *gin.Context) {
	catalog, err := h.recommendations.ListAll(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"recommendations": catalog})
}
