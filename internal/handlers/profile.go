package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/models"
	"github.com/jansathi/portal/internal/services"
	"github.com/jansathi/portal/pkg/errors"
	"github.com/jansathi/portal/pkg/response"
)

// ProfileHandler serves the citizen's own profile and recommendations.
type ProfileHandler struct {
	profiles        *services.ProfileService
	recommendations *services.RecommendationService
}

func NewProfileHandler(profiles *services.ProfileService, recommendations *services.RecommendationService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, recommendations: recommendations}
}

// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, score, err := h.profiles.Get(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":             user,
		"completion_score": score,
	})
}

type updateProfileRequest struct {
	Name                 string         `json:"name" validate:"required,min=2,max=100"`
	Age                  *int           `json:"age"`
	Gender               string         `json:"gender"`
	MaritalStatus        string         `json:"marital_status"`
	Occupation           string         `json:"occupation"`
	Education            string         `json:"education"`
	IsGovernmentEmployee bool           `json:"is_government_employee"`
	PermanentAddress     models.Address `json:"permanent_address"`
	CurrentAddress       models.Address `json:"current_address"`
	SpouseName           string         `json:"spouse_name"`
	Children             []models.Child `json:"children"`
}

// PUT /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, score, err := h.profiles.Update(requestContext(c), userID, services.UpdateProfileInput{
		Name:                 req.Name,
		Age:                  req.Age,
		Gender:               req.Gender,
		MaritalStatus:        req.MaritalStatus,
		Occupation:           req.Occupation,
		Education:            req.Education,
		IsGovernmentEmployee: req.IsGovernmentEmployee,
		PermanentAddress:     req.PermanentAddress,
		CurrentAddress:       req.CurrentAddress,
		SpouseName:           req.SpouseName,
		Children:             req.Children,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":             user,
		"completion_score": score,
	})
}

// GET /api/profile/recommendations
func (h *ProfileHandler) Recommendations(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	matched, err := h.recommendations.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"recommendations": matched})
}
