package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/models"
	"github.com/jansathi/portal/internal/notifications"
	"github.com/jansathi/portal/pkg/crypto"
	apperrors "github.com/jansathi/portal/pkg/errors"
	"github.com/jansathi/portal/pkg/logger"
	"github.com/jansathi/portal/pkg/metrics"
)

// Flow selects which account collection a login attempt runs against.
type Flow string

const (
	FlowUser  Flow = "user"
	FlowAdmin Flow = "admin"

	signupSubjectPrefix = "signup:"

	deliveryTimeout = 15 * time.Second
	readAttempts    = 3
	readBackoff     = 50 * time.Millisecond
)

// VerifierConfig bundles the collaborators of a Verifier.
type VerifierConfig struct {
	DB         *gorm.DB
	Challenges *ChallengeService
	Tokens     *JWTService
	Notifier   notifications.Notifier
	Clock      func() time.Time
}

// Verifier drives the two-step login state machine: CAPTCHA plus password
// first, then OTP plus location. Both citizen and admin flows run through the
// same code path; only the account lookup differs.
type Verifier struct {
	db         *gorm.DB
	challenges *ChallengeService
	tokens     *JWTService
	notifier   notifications.Notifier
	now        func() time.Time
	log        *zap.Logger
}

// NewVerifier validates the configuration and builds the verifier.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.DB == nil {
		return nil, errors.New("verifier: db is required")
	}
	if cfg.Challenges == nil {
		return nil, errors.New("verifier: challenge service is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("verifier: jwt service is required")
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notifications.NopNotifier{}
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Verifier{
		db:         cfg.DB,
		challenges: cfg.Challenges,
		tokens:     cfg.Tokens,
		notifier:   notifier,
		now:        now,
		log:        logger.WithModule("auth"),
	}, nil
}

// BeginLoginInput carries the first-step credentials. Identifier is an email
// or a 10-digit mobile number for citizens, an email for admins.
type BeginLoginInput struct {
	Flow          Flow
	Identifier    string
	Password      string
	CaptchaToken  string
	CaptchaAnswer string
}

// OTPChallengeIssued acknowledges a successful first step. The code itself
// travels out-of-band; only the opaque token is returned on this channel.
type OTPChallengeIssued struct {
	OTPToken string
}

// Session is the outcome of a completed login. Exactly one of User or Admin
// is set, matching the flow.
type Session struct {
	Token string
	Role  string
	User  *models.User
	Admin *models.AdminAccount
}

// BeginLogin checks identifier, CAPTCHA, and password, then issues an OTP
// challenge delivered via the notifier. Account-absent and wrong-password
// rejections are indistinguishable to the caller.
func (v *Verifier) BeginLogin(ctx context.Context, input BeginLoginInput) (*OTPChallengeIssued, error) {
	flow := input.Flow
	if flow == "" {
		flow = FlowUser
	}

	subjectID, email, passwordHash, err := v.lookupAccount(ctx, flow, input.Identifier)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(string(flow), "failure").Inc()
		return nil, err
	}

	if err := v.challenges.VerifyCaptcha(ctx, input.CaptchaToken, input.CaptchaAnswer); err != nil {
		metrics.AuthAttempts.WithLabelValues(string(flow), "failure").Inc()
		return nil, err
	}

	if !crypto.VerifyPassword(passwordHash, input.Password) {
		metrics.AuthAttempts.WithLabelValues(string(flow), "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	token, code, err := v.challenges.IssueOTP(ctx, string(flow)+":"+subjectID)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	v.deliverCode(email, "Your JanSathi login code", code)
	v.log.Info("otp challenge issued",
		zap.String("flow", string(flow)),
		zap.String("subject_id", subjectID))

	return &OTPChallengeIssued{OTPToken: token}, nil
}

// CompleteLoginInput carries the second-step credentials plus the device
// geolocation required by the location gate.
type CompleteLoginInput struct {
	OTPToken string
	OTPCode  string
	Location *models.Location
	Device   models.DeviceInfo
}

// CompleteLogin validates the location before consuming the OTP (a rejected
// location must not burn the single-use code), records the login, and mints
// a session token.
func (v *Verifier) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*Session, error) {
	loc, err := RequireLocation(input.Location)
	if err != nil {
		return nil, err
	}

	subject, err := v.challenges.VerifyOTP(ctx, input.OTPToken, input.OTPCode)
	if err != nil {
		return nil, err
	}

	flow, subjectID, ok := splitSubject(subject)
	if !ok {
		return nil, apperrors.ErrInvalidOTP
	}

	var session *Session
	switch flow {
	case FlowUser:
		session, err = v.completeUserLogin(ctx, subjectID, loc, input.Device)
	case FlowAdmin:
		session, err = v.completeAdminLogin(ctx, subjectID, loc)
	default:
		return nil, apperrors.ErrInvalidOTP
	}
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(string(flow), "failure").Inc()
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues(string(flow), "success").Inc()
	v.log.Info("login completed",
		zap.String("flow", string(flow)),
		zap.String("subject_id", subjectID))
	return session, nil
}

// SignupInput carries a CAPTCHA-gated registration request. Field formats
// are validated at the boundary; the verifier enforces uniqueness and the
// location gate.
type SignupInput struct {
	Name          string
	Email         string
	MobileNumber  string
	Password      string
	CaptchaToken  string
	CaptchaAnswer string
	Location      *models.Location
}

// Signup creates an unverified account and issues a verification OTP to the
// new address. The returned token feeds VerifySignup.
func (v *Verifier) Signup(ctx context.Context, input SignupInput) (*models.User, string, error) {
	loc, err := RequireLocation(input.Location)
	if err != nil {
		return nil, "", err
	}

	if err := v.challenges.VerifyCaptcha(ctx, input.CaptchaToken, input.CaptchaAnswer); err != nil {
		return nil, "", err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	mobile := strings.TrimSpace(input.MobileNumber)

	var existing int64
	err = v.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR mobile_number = ?", email, mobile).
		Count(&existing).Error
	if err != nil {
		return nil, "", apperrors.ErrInternalServer.WithInternal(err)
	}
	if existing > 0 {
		return nil, "", apperrors.ErrDuplicateAccount
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, "", apperrors.ErrInternalServer.WithInternal(err)
	}

	user := models.User{
		Name:              strings.TrimSpace(input.Name),
		Email:             email,
		MobileNumber:      mobile,
		PasswordHash:      hash,
		LastLoginLocation: loc,
	}
	if err := v.db.WithContext(ctx).Create(&user).Error; err != nil {
		// The unique indexes on email and mobile_number are the only
		// constraints that can fire here; a racing duplicate lands on them.
		return nil, "", apperrors.ErrDuplicateAccount.WithInternal(err)
	}

	token, code, err := v.challenges.IssueOTP(ctx, signupSubjectPrefix+user.ID)
	if err != nil {
		return nil, "", apperrors.ErrInternalServer.WithInternal(err)
	}

	v.deliverCode(user.Email, "Verify your JanSathi account", code)
	v.log.Info("signup recorded", zap.String("user_id", user.ID))

	return &user, token, nil
}

// VerifySignup consumes a verification OTP and marks the account verified.
func (v *Verifier) VerifySignup(ctx context.Context, otpToken, code string) (*models.User, error) {
	subject, err := v.challenges.VerifyOTP(ctx, otpToken, code)
	if err != nil {
		return nil, err
	}

	userID, ok := strings.CutPrefix(subject, signupSubjectPrefix)
	if !ok || userID == "" {
		return nil, apperrors.ErrInvalidOTP
	}

	user, err := v.findUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.IsVerified {
		if err := v.db.WithContext(ctx).Model(user).Update("is_verified", true).Error; err != nil {
			return nil, apperrors.ErrInternalServer.WithInternal(err)
		}
		user.IsVerified = true
	}
	return user, nil
}

func (v *Verifier) completeUserLogin(ctx context.Context, userID string, loc *models.Location, device models.DeviceInfo) (*Session, error) {
	user, err := v.findUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := v.now().UTC()
	err = v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := models.LoginRecord{
			UserID:     user.ID,
			Location:   *loc,
			DeviceInfo: datatypes.NewJSONType(device),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		// Completing the OTP proves control of the registered email, so a
		// pending signup verification is satisfied here as well.
		updates := map[string]any{
			"last_login_at":        now,
			"last_login_latitude":  loc.Latitude,
			"last_login_longitude": loc.Longitude,
			"last_login_accuracy":  loc.Accuracy,
			"last_login_timestamp": loc.Timestamp,
			"is_verified":          true,
		}
		return tx.Model(user).Updates(updates).Error
	})
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	user.LastLoginAt = &now
	user.LastLoginLocation = loc
	user.IsVerified = true

	token, err := v.tokens.GenerateAccessToken(AccessTokenInput{
		SubjectID: user.ID,
		Role:      models.RoleUser,
		Location:  loc,
	})
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	return &Session{Token: token, Role: models.RoleUser, User: user}, nil
}

func (v *Verifier) completeAdminLogin(ctx context.Context, adminID string, loc *models.Location) (*Session, error) {
	var admin models.AdminAccount
	err := v.retryRead(func() error {
		return v.db.WithContext(ctx).First(&admin, "id = ?", adminID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	now := v.now().UTC()
	err = v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := models.AdminLoginLocation{
			AdminID:   admin.ID,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Model(&admin).Update("last_login", now).Error
	})
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	admin.LastLogin = &now

	role := admin.Role
	if role == "" {
		role = models.RoleAdmin
	}

	token, err := v.tokens.GenerateAccessToken(AccessTokenInput{
		SubjectID: admin.ID,
		Role:      role,
		Location:  loc,
	})
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	return &Session{Token: token, Role: role, Admin: &admin}, nil
}

func (v *Verifier) lookupAccount(ctx context.Context, flow Flow, identifier string) (subjectID, email, passwordHash string, err error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", "", "", apperrors.ErrInvalidCredentials
	}

	switch flow {
	case FlowUser:
		var user models.User
		lookupErr := v.retryRead(func() error {
			return v.db.WithContext(ctx).
				Where("email = ? OR mobile_number = ?", strings.ToLower(identifier), identifier).
				First(&user).Error
		})
		if lookupErr != nil {
			if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				return "", "", "", apperrors.ErrInvalidCredentials
			}
			return "", "", "", apperrors.ErrInternalServer.WithInternal(lookupErr)
		}
		return user.ID, user.Email, user.PasswordHash, nil

	case FlowAdmin:
		var admin models.AdminAccount
		lookupErr := v.retryRead(func() error {
			return v.db.WithContext(ctx).
				Where("email = ?", strings.ToLower(identifier)).
				First(&admin).Error
		})
		if lookupErr != nil {
			if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				return "", "", "", apperrors.ErrInvalidCredentials
			}
			return "", "", "", apperrors.ErrInternalServer.WithInternal(lookupErr)
		}
		return admin.ID, admin.Email, admin.PasswordHash, nil

	default:
		return "", "", "", apperrors.ErrInvalidCredentials
	}
}

func (v *Verifier) findUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := v.retryRead(func() error {
		return v.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return &user, nil
}

// deliverCode sends an OTP to its recipient without blocking the request and
// without the request's cancellation cutting the delivery short. The code
// value is never logged.
func (v *Verifier) deliverCode(to, subject, code string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		body := fmt.Sprintf("Your one-time code is %s. It expires shortly; never share it with anyone.", code)
		if err := v.notifier.Send(ctx, to, subject, body); err != nil {
			v.log.Warn("otp delivery failed", zap.String("to", to), zap.Error(err))
		}
	}()
}

// retryRead reruns an idempotent lookup a bounded number of times on
// transient errors. Not-found is terminal, never retried.
func (v *Verifier) retryRead(fn func() error) error {
	var err error
	for attempt := 0; attempt < readAttempts; attempt++ {
		if err = fn(); err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		time.Sleep(readBackoff)
	}
	return err
}

func splitSubject(subject string) (Flow, string, bool) {
	flowName, id, ok := strings.Cut(subject, ":")
	if !ok || id == "" {
		return "", "", false
	}
	switch Flow(flowName) {
	case FlowUser, FlowAdmin:
		return Flow(flowName), id, true
	}
	return "", "", false
}
