package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/services"
	"github.com/jansathi/portal/pkg/errors"
	"github.com/jansathi/portal/pkg/response"
)

// ApplicationHandler lets citizens file and track policy applications.
type ApplicationHandler struct {
	applications *services.ApplicationService
}

func NewApplicationHandler(applications *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

type submitApplicationRequest struct {
	Title         string `json:"title" validate:"required,min=5,max=200"`
	Description   string `json:"description" validate:"required,min=10"`
	Justification string `json:"justification"`
}

// POST /api/applications
func (h *ApplicationHandler) Submit(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req submitApplicationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	application, err := h.applications.Submit(requestContext(c), services.SubmitApplicationInput{
		UserID:        userID,
		Title:         req.Title,
		Description:   req.Description,
		Justification: req.Justification,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"application": application})
}

// GET /api/applications
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	applications, err := h.applications.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"applications": applications})
}
