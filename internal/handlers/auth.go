package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/jansathi/portal/internal/auth"
	"github.com/jansathi/portal/internal/models"
	"github.com/jansathi/portal/pkg/errors"
	"github.com/jansathi/portal/pkg/response"
)

// AuthHandler exposes the challenge and two-step login flows over HTTP.
type AuthHandler struct {
	verifier   *iauth.Verifier
	challenges *iauth.ChallengeService
}

func NewAuthHandler(verifier *iauth.Verifier, challenges *iauth.ChallengeService) *AuthHandler {
	return &AuthHandler{verifier: verifier, challenges: challenges}
}

// GET /api/auth/captcha
func (h *AuthHandler) Captcha(c *gin.Context) {
	challenge, err := h.challenges.IssueCaptcha(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"captcha_token":        challenge.Token,
		"captcha_image_base64": base64.StdEncoding.EncodeToString(challenge.Image),
		"content_type":         "image/png",
	})
}

type signupRequest struct {
	Name         string           `json:"name" validate:"required,min=2,max=100"`
	Email        string           `json:"email" validate:"required,email"`
	MobileNumber string           `json:"mobile_number" validate:"required,mobile"`
	Password     string           `json:"password" validate:"required,min=8,max=72"`
	CaptchaToken string           `json:"captcha_token" validate:"required"`
	CaptchaInput string           `json:"captcha_input" validate:"required"`
	Location     *models.Location `json:"location"`
}

// POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, otpToken, err := h.verifier.Signup(requestContext(c), iauth.SignupInput{
		Name:          req.Name,
		Email:         req.Email,
		MobileNumber:  req.MobileNumber,
		Password:      req.Password,
		CaptchaToken:  req.CaptchaToken,
		CaptchaAnswer: req.CaptchaInput,
		Location:      req.Location,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"user":      user,
		"otp_token": otpToken,
	})
}

type verifySignupRequest struct {
	OTPToken string `json:"otp_token" validate:"required"`
	OTPInput string `json:"otp_input" validate:"required,len=6"`
}

// POST /api/auth/signup/verify
func (h *AuthHandler) VerifySignup(c *gin.Context) {
	var req verifySignupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.verifier.VerifySignup(requestContext(c), req.OTPToken, req.OTPInput)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

type loginBeginRequest struct {
	Identifier   string `json:"identifier" validate:"required"`
	Password     string `json:"password" validate:"required"`
	CaptchaToken string `json:"captcha_token" validate:"required"`
	CaptchaInput string `json:"captcha_input" validate:"required"`
}

// POST /api/auth/login/begin
func (h *AuthHandler) LoginBegin(c *gin.Context) {
	h.beginLogin(c, iauth.FlowUser)
}

// POST /api/admin/auth/login/begin
func (h *AuthHandler) AdminLoginBegin(c *gin.Context) {
	h.beginLogin(c, iauth.FlowAdmin)
}

func (h *AuthHandler) beginLogin(c *gin.Context, flow iauth.Flow) {
	var req loginBeginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	issued, err := h.verifier.BeginLogin(requestContext(c), iauth.BeginLoginInput{
		Flow:          flow,
		Identifier:    req.Identifier,
		Password:      req.Password,
		CaptchaToken:  req.CaptchaToken,
		CaptchaAnswer: req.CaptchaInput,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"otp_challenge_issued": true,
		"otp_token":            issued.OTPToken,
	})
}

type loginCompleteRequest struct {
	OTPToken string           `json:"otp_token" validate:"required"`
	OTPInput string           `json:"otp_input" validate:"required,len=6"`
	Location *models.Location `json:"location"`
}

// POST /api/auth/login/complete
func (h *AuthHandler) LoginComplete(c *gin.Context) {
	h.completeLogin(c, iauth.FlowUser)
}

// POST /api/admin/auth/login/complete
func (h *AuthHandler) AdminLoginComplete(c *gin.Context) {
	h.completeLogin(c, iauth.FlowAdmin)
}

func (h *AuthHandler) completeLogin(c *gin.Context, flow iauth.Flow) {
	var req loginCompleteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	session, err := h.verifier.CompleteLogin(requestContext(c), iauth.CompleteLoginInput{
		OTPToken: req.OTPToken,
		OTPCode:  req.OTPInput,
		Location: req.Location,
		Device: models.DeviceInfo{
			UserAgent: c.Request.UserAgent(),
			IP:        c.ClientIP(),
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	// The token grants whichever surface the flow targeted; a citizen token
	// never comes back from the admin endpoint and vice versa.
	switch flow {
	case iauth.FlowAdmin:
		if session.Admin == nil {
			response.Error(c, errors.ErrInvalidOTP)
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"token": session.Token,
			"admin": session.Admin,
		})
	default:
		if session.User == nil {
			response.Error(c, errors.ErrInvalidOTP)
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"token": session.Token,
			"user":  session.User,
		})
	}
}
