package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/hotp"

	"github.com/jansathi/portal/internal/cache"
	"github.com/jansathi/portal/pkg/captcha"
	"github.com/jansathi/portal/pkg/crypto"
	apperrors "github.com/jansathi/portal/pkg/errors"
	"github.com/jansathi/portal/pkg/metrics"
)

// Challenge lifetimes. A CAPTCHA has to survive a human solving a form; an
// OTP only the delivery round trip.
const (
	DefaultCaptchaTTL = 5 * time.Minute
	DefaultOTPTTL     = 2 * time.Minute

	captchaTextLength = 6
	challengeTokenLen = 32 // bytes of entropy behind each token
)

const (
	captchaKeyPrefix = "challenge:captcha:"
	otpKeyPrefix     = "challenge:otp:"
)

// ChallengeConfig bundles the collaborators of a ChallengeService.
type ChallengeConfig struct {
	Store      cache.Store
	Renderer   captcha.Renderer
	CaptchaTTL time.Duration
	OTPTTL     time.Duration
}

// ChallengeService issues and verifies short-lived one-time challenges.
// Every token is consumed on the first verification attempt regardless of
// outcome; a mistyped answer forces re-issuance. This is the replay
// trade-off, not a bug.
type ChallengeService struct {
	store      cache.Store
	renderer   captcha.Renderer
	captchaTTL time.Duration
	otpTTL     time.Duration
}

// CaptchaChallenge is handed to the client: the opaque token plus the
// rendered PNG. The expected text never leaves the server.
type CaptchaChallenge struct {
	Token string
	Image []byte
}

type challengePayload struct {
	Value   string `json:"value"`
	Subject string `json:"subject,omitempty"`
}

// NewChallengeService validates the configuration and builds the service.
func NewChallengeService(cfg ChallengeConfig) (*ChallengeService, error) {
	if cfg.Store == nil {
		return nil, errors.New("challenge: store is required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("challenge: captcha renderer is required")
	}

	captchaTTL := cfg.CaptchaTTL
	if captchaTTL <= 0 {
		captchaTTL = DefaultCaptchaTTL
	}
	otpTTL := cfg.OTPTTL
	if otpTTL <= 0 {
		otpTTL = DefaultOTPTTL
	}

	return &ChallengeService{
		store:      cfg.Store,
		renderer:   cfg.Renderer,
		captchaTTL: captchaTTL,
		otpTTL:     otpTTL,
	}, nil
}

// IssueCaptcha generates a random text, renders it, and stores the expected
// value under a fresh token.
func (s *ChallengeService) IssueCaptcha(ctx context.Context) (*CaptchaChallenge, error) {
	text, err := crypto.RandomCaptchaText(captchaTextLength)
	if err != nil {
		return nil, fmt.Errorf("challenge: generate captcha text: %w", err)
	}

	image, err := s.renderer.Render(text)
	if err != nil {
		return nil, fmt.Errorf("challenge: render captcha: %w", err)
	}

	token, err := s.put(ctx, captchaKeyPrefix, challengePayload{Value: text}, s.captchaTTL)
	if err != nil {
		return nil, err
	}

	metrics.ChallengesIssued.WithLabelValues("captcha").Inc()
	return &CaptchaChallenge{Token: token, Image: image}, nil
}

// VerifyCaptcha consumes the token and compares answers case-insensitively.
// Unknown tokens, expired tokens, store failures, and mismatches all report
// the same invalid-captcha rejection.
func (s *ChallengeService) VerifyCaptcha(ctx context.Context, token, answer string) error {
	payload, found, err := s.take(ctx, captchaKeyPrefix, token)
	if err != nil {
		return apperrors.ErrInvalidCaptcha.WithInternal(err)
	}
	if !found {
		return apperrors.ErrInvalidCaptcha
	}

	if !strings.EqualFold(payload.Value, strings.TrimSpace(answer)) {
		return apperrors.ErrInvalidCaptcha
	}
	return nil
}

// IssueOTP generates a 6-digit HOTP code bound to the supplied subject,
// stores it, and returns both token and code. The caller is responsible for
// delivering the code out-of-band; it must never appear in a response that
// also carried the password.
func (s *ChallengeService) IssueOTP(ctx context.Context, subject string) (token, code string, err error) {
	if strings.TrimSpace(subject) == "" {
		return "", "", errors.New("challenge: otp subject is required")
	}

	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", "", fmt.Errorf("challenge: generate otp secret: %w", err)
	}
	var counterBytes [8]byte
	if _, err := rand.Read(counterBytes[:]); err != nil {
		return "", "", fmt.Errorf("challenge: generate otp counter: %w", err)
	}

	code, err = hotp.GenerateCode(base32.StdEncoding.EncodeToString(secret), binary.BigEndian.Uint64(counterBytes[:]))
	if err != nil {
		return "", "", fmt.Errorf("challenge: generate otp code: %w", err)
	}

	token, err = s.put(ctx, otpKeyPrefix, challengePayload{Value: code, Subject: subject}, s.otpTTL)
	if err != nil {
		return "", "", err
	}

	metrics.ChallengesIssued.WithLabelValues("otp").Inc()
	return token, code, nil
}

// VerifyOTP consumes the token and compares codes exactly. A missing token
// reports expiry (tokens are single-use and short-lived, so an absent entry
// means the TTL elapsed); a present token with the wrong code reports an
// invalid code. Store failures fail closed as invalid.
func (s *ChallengeService) VerifyOTP(ctx context.Context, token, code string) (string, error) {
	payload, found, err := s.take(ctx, otpKeyPrefix, token)
	if err != nil {
		return "", apperrors.ErrInvalidOTP.WithInternal(err)
	}
	if !found {
		return "", apperrors.ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(payload.Value), []byte(strings.TrimSpace(code))) != 1 {
		return "", apperrors.ErrInvalidOTP
	}
	return payload.Subject, nil
}

func (s *ChallengeService) put(ctx context.Context, prefix string, payload challengePayload, ttl time.Duration) (string, error) {
	token, err := crypto.GenerateToken(challengeTokenLen)
	if err != nil {
		return "", fmt.Errorf("challenge: generate token: %w", err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("challenge: marshal payload: %w", err)
	}

	if err := s.store.Set(ctx, prefix+token, raw, ttl); err != nil {
		return "", fmt.Errorf("challenge: store challenge: %w", err)
	}
	return token, nil
}

func (s *ChallengeService) take(ctx context.Context, prefix, token string) (challengePayload, bool, error) {
	var payload challengePayload

	token = strings.TrimSpace(token)
	if token == "" {
		return payload, false, nil
	}

	raw, found, err := s.store.Take(ctx, prefix+token)
	if err != nil {
		return payload, false, fmt.Errorf("challenge: take %s: %w", prefix, err)
	}
	if !found {
		return payload, false, nil
	}

	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, false, fmt.Errorf("challenge: decode payload: %w", err)
	}
	return payload, true, nil
}
