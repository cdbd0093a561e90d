package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/api"
	"github.com/jansathi/portal/internal/app"
	iauth "github.com/jansathi/portal/internal/auth"
	"github.com/jansathi/portal/internal/cache"
	sharedtestutil "github.com/jansathi/portal/internal/database/testutil"
	"github.com/jansathi/portal/internal/middleware"
	"github.com/jansathi/portal/internal/models"
	"github.com/jansathi/portal/internal/realtime"
	"github.com/jansathi/portal/pkg/captcha"
	"github.com/jansathi/portal/pkg/crypto"
	"github.com/jansathi/portal/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database
// for handler tests. The challenge store and OTP deliveries are reachable so
// tests can drive the full captcha and OTP flows end to end.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Store  cache.Store
	Mail   *MailCapture
}

// MailCapture collects notifier deliveries so tests can read issued OTP codes.
type MailCapture struct {
	messages chan capturedMail
}

type capturedMail struct {
	To      string
	Subject string
	Body    string
}

func newMailCapture() *MailCapture {
	return &MailCapture{messages: make(chan capturedMail, 16)}
}

// Send implements notifications.Notifier.
func (m *MailCapture) Send(_ context.Context, to, subject, body string) error {
	m.messages <- capturedMail{To: to, Subject: subject, Body: body}
	return nil
}

var otpCodePattern = regexp.MustCompile(`\d{6}`)

// WaitForOTP blocks until a delivery arrives and extracts the 6-digit code.
func (m *MailCapture) WaitForOTP(t *testing.T) string {
	t.Helper()

	select {
	case msg := <-m.messages:
		code := otpCodePattern.FindString(msg.Body)
		require.NotEmpty(t, code, "expected a 6-digit code in %q", msg.Body)
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for otp delivery")
		return ""
	}
}

// NewEnv provisions a fresh handler test environment with migrations and seed
// data applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:       jwtSecret,
		Issuer:       "test-suite",
		UserTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	store := cache.NewMemoryStore()
	challenges, err := iauth.NewChallengeService(iauth.ChallengeConfig{
		Store:      store,
		Renderer:   captcha.NewImageRenderer(),
		CaptchaTTL: 5 * time.Minute,
		OTPTTL:     2 * time.Minute,
	})
	require.NoError(t, err)

	mail := newMailCapture()
	verifier, err := iauth.NewVerifier(iauth.VerifierConfig{
		DB:         db,
		Challenges: challenges,
		Tokens:     jwtSvc,
		Notifier:   mail,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret:       jwtSecret,
				Issuer:       "test-suite",
				UserTokenTTL: time.Hour,
			},
			Challenge: app.ChallengeSettings{
				CaptchaTTL: 5 * time.Minute,
				OTPTTL:     2 * time.Minute,
			},
		},
		// High ceilings keep the limiter out of the way unless a test
		// exercises it on purpose.
		RateLimit: app.RateLimitConfig{
			Requests:     10000,
			Window:       time.Minute,
			AuthRequests: 10000,
			AuthWindow:   time.Minute,
		},
	}

	router, err := api.NewRouter(api.Deps{
		DB:         db,
		Config:     cfg,
		JWT:        jwtSvc,
		Verifier:   verifier,
		Challenges: challenges,
		Hub:        realtime.NewHub(),
		RateStore:  middleware.NewMemoryRateStore(),
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Store:  store,
		Mail:   mail,
	}
}

// CreateCitizen inserts a verified citizen account and returns the record.
// The email and mobile number are randomized so tests never collide.
func (e *Env) CreateCitizen(password string) *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	suffix := uuid.NewString()
	user := &models.User{
		Name:         "Citizen " + suffix[:8],
		Email:        "citizen-" + suffix + "@example.com",
		MobileNumber: randomMobile(),
		PasswordHash: hashed,
		IsVerified:   true,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// CreateAdmin inserts an admin account with the default admin role.
func (e *Env) CreateAdmin(password string) *models.AdminAccount {
	e.T.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	admin := &models.AdminAccount{
		Email:        "admin-" + uuid.NewString() + "@example.com",
		PasswordHash: hashed,
		Role:         models.RoleAdmin,
	}
	require.NoError(e.T, e.DB.Create(admin).Error)
	return admin
}

// TestLocation returns a plausible device location for login payloads.
func TestLocation() map[string]any {
	return map[string]any{
		"latitude":  18.5204,
		"longitude": 73.8567,
		"accuracy":  12.5,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}

// SolveCaptcha requests a fresh captcha and reads its answer straight out of
// the challenge store, returning the token and the expected input.
func (e *Env) SolveCaptcha() (token, answer string) {
	e.T.Helper()

	w := e.Request(http.MethodGet, "/api/auth/captcha", nil, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var payload struct {
		CaptchaToken string `json:"captcha_token"`
	}
	DecodeInto(e.T, resp.Data, &payload)
	require.NotEmpty(e.T, payload.CaptchaToken)

	raw, found, err := e.Store.Get(context.Background(), "challenge:captcha:"+payload.CaptchaToken)
	require.NoError(e.T, err)
	require.True(e.T, found, "captcha challenge missing from store")

	var stored struct {
		Value string `json:"value"`
	}
	require.NoError(e.T, json.Unmarshal(raw, &stored))
	require.NotEmpty(e.T, stored.Value)

	return payload.CaptchaToken, stored.Value
}

// Login drives the full citizen two-step flow and returns the session token.
func (e *Env) Login(identifier, password string) string {
	e.T.Helper()
	return e.login("/api/auth", identifier, password)
}

// AdminLogin drives the full admin two-step flow and returns the session token.
func (e *Env) AdminLogin(email, password string) string {
	e.T.Helper()
	return e.login("/api/admin/auth", email, password)
}

func (e *Env) login(base, identifier, password string) string {
	e.T.Helper()

	captchaToken, answer := e.SolveCaptcha()

	w := e.Request(http.MethodPost, base+"/login/begin", map[string]string{
		"identifier":    identifier,
		"password":      password,
		"captcha_token": captchaToken,
		"captcha_input": answer,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var begin struct {
		OTPToken string `json:"otp_token"`
	}
	DecodeInto(e.T, resp.Data, &begin)
	require.NotEmpty(e.T, begin.OTPToken)

	code := e.Mail.WaitForOTP(e.T)

	w = e.Request(http.MethodPost, base+"/login/complete", map[string]any{
		"otp_token": begin.OTPToken,
		"otp_input": code,
		"location":  TestLocation(),
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp = DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var complete struct {
		Token string `json:"token"`
	}
	DecodeInto(e.T, resp.Data, &complete)
	require.NotEmpty(e.T, complete.Token)
	return complete.Token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON
// encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

var mobileCounter uint32

func randomMobile() string {
	mobileCounter++
	id := uuid.New().ID() % 100000
	return fmt.Sprintf("98%03d%05d", mobileCounter%1000, id)
}
