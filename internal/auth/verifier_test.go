package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/cache"
	"github.com/jansathi/portal/internal/database/testutil"
	"github.com/jansathi/portal/internal/models"
	"github.com/jansathi/portal/pkg/crypto"
	apperrors "github.com/jansathi/portal/pkg/errors"
)

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

type captureNotifier struct {
	messages chan sentMessage
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{messages: make(chan sentMessage, 8)}
}

func (n *captureNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.messages <- sentMessage{To: to, Subject: subject, Body: body}
	return nil
}

var otpCodePattern = regexp.MustCompile(`\d{6}`)

func (n *captureNotifier) waitForCode(t *testing.T) string {
	t.Helper()

	select {
	case msg := <-n.messages:
		code := otpCodePattern.FindString(msg.Body)
		require.NotEmpty(t, code, "expected a 6-digit code in %q", msg.Body)
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for otp delivery")
		return ""
	}
}

type verifierFixture struct {
	verifier   *Verifier
	challenges *ChallengeService
	renderer   *stubRenderer
	notifier   *captureNotifier
	tokens     *JWTService
	db         *gorm.DB
}

func newVerifierFixture(t *testing.T) *verifierFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	renderer := &stubRenderer{}
	challenges, err := NewChallengeService(ChallengeConfig{Store: cache.NewMemoryStore(), Renderer: renderer})
	require.NoError(t, err)

	tokens, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "jansathi"})
	require.NoError(t, err)

	notifier := newCaptureNotifier()
	verifier, err := NewVerifier(VerifierConfig{
		DB:         db,
		Challenges: challenges,
		Tokens:     tokens,
		Notifier:   notifier,
	})
	require.NoError(t, err)

	return &verifierFixture{
		verifier:   verifier,
		challenges: challenges,
		renderer:   renderer,
		notifier:   notifier,
		tokens:     tokens,
		db:         db,
	}
}

func (f *verifierFixture) createUser(t *testing.T, email, mobile, password string) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := models.User{
		Name:         "Asha Citizen",
		Email:        email,
		MobileNumber: mobile,
		PasswordHash: hash,
	}
	require.NoError(t, f.db.Create(&user).Error)
	return &user
}

func (f *verifierFixture) createAdmin(t *testing.T, email, password string) *models.AdminAccount {
	t.Helper()

	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)

	admin := models.AdminAccount{Email: email, PasswordHash: hash, Role: models.RoleAdmin}
	require.NoError(t, f.db.Create(&admin).Error)
	return &admin
}

func (f *verifierFixture) solveCaptcha(t *testing.T) (token, answer string) {
	t.Helper()

	issued, err := f.challenges.IssueCaptcha(context.Background())
	require.NoError(t, err)
	return issued.Token, f.renderer.lastText
}

func validLocation() *models.Location {
	return &models.Location{Latitude: 19.076, Longitude: 72.8777, Accuracy: 30}
}

func TestUserLoginFlow(t *testing.T) {
	f := newVerifierFixture(t)
	user := f.createUser(t, "asha@example.com", "9876543210", "s3cret-pass")

	captchaToken, answer := f.solveCaptcha(t)
	issued, err := f.verifier.BeginLogin(context.Background(), BeginLoginInput{
		Flow:          FlowUser,
		Identifier:    "asha@example.com",
		Password:      "s3cret-pass",
		CaptchaToken:  captchaToken,
		CaptchaAnswer: answer,
	})
	require.NoError(t, err)
	require.NotEmpty(t, issued.OTPToken)

	code := f.notifier.waitForCode(t)

	session, err := f.verifier.CompleteLogin(context.Background(), CompleteLoginInput{
		OTPToken: issued.OTPToken,
		OTPCode:  code,
		Location: validLocation(),
		Device:   models.DeviceInfo{UserAgent: "test-agent", IP: "203.0.113.9"},
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, session.Role)
	require.NotNil(t, session.User)
	require.Equal(t, user.ID, session.User.ID)
	require.True(t, session.User.IsVerified)
	require.NotNil(t, session.User.LastLoginAt)

	claims, err := f.tokens.ValidateAccessToken(session.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, models.RoleUser, claims.Role)
	require.NotNil(t, claims.Location)

	var records int64
	require.NoError(t, f.db.Model(&models.LoginRecord{}).Where("user_id = ?", user.ID).Count(&records).Error)
	require.EqualValues(t, 1, records)
}

func TestUserLoginByMobileNumber(t *testing.T) {
	f := newVerifierFixture(t)
	f.createUser(t, "ravi@example.com", "9123456780", "s3cret-pass")

	captchaToken, answer := f.solveCaptcha(t)
	_, err := f.verifier.BeginLogin(context.Background(), BeginLoginInput{
		Identifier:    "9123456780",
		Password:      "s3cret-pass",
		CaptchaToken:  captchaToken,
		CaptchaAnswer: answer,
	})
	require.NoError(t, err)
}

func TestBeginLoginRejectionsAreUniform(t *testing.T) {
	f := newVerifierFixture(t)
	f.createUser(t, "asha@example.com", "9876543210", "s3cret-pass")

	// Unknown identifier and wrong password produce the same rejection so
	// responses cannot be used to enumerate accounts.
	captchaToken, answer := f.solveCaptcha(t)
	_, unknownErr := f.verifier.BeginLogin(context.Background(), BeginLoginInput{
		Identifier:    "nobody@example.com",
		Password:      "whatever",
		CaptchaToken:  captchaToken,
		CaptchaAnswer: answer,
	})
	require.ErrorIs(t, unknownErr, apperrors.ErrInvalidCredentials)

	captchaToken, answer = f.solveCaptcha(t)
	_, wrongPassErr := f.verifier.BeginLogin(context.Background(), BeginLoginInput{
		Identifier:    "asha@example.com",
		Password:      "not-the-password",
		CaptchaToken:  captchaToken,
		CaptchaAnswer: answer,
	})
	require.ErrorIs(t, wrongPassErr, apperrors.ErrInvalidCredentials)

	require.EqualError(t, unknownErr, wrongPassErr.Error())
}

func TestBeginLoginInvalidCaptcha(t *testing.T) {
	f := newVerifierFixture(t)
	f.createUser(t, "asha@example.com", "9876543210", "s3cret-pass")

	captchaToken, _ := f.solveCaptcha(t)
	_, err := f.verifier.BeginLogin(context.Background(), BeginLoginInput{
		Identifier:    "asha@example.com",
		Password:      "s3cret-pass",
		CaptchaToken:  captchaToken,
		CaptchaAnswer: "wrong",
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidCaptcha)
}

func TestCompleteLoginLocationGateRunsBeforeOTPConsumption(t *testing.T) {
	f := newVerifierFixture(t)
	f.createUser(t, "asha@example.com", "9876543210", "s3cret-pass")

	captchaToken, answer := f.solveCaptcha(t)
	issued, err := f.verifier.BeginLogin(context.Background(), BeginLoginInput{
		Identifier:    "asha@example.com",
		Password:      "s3cret-pass",
		CaptchaToken:  captchaToken,
		CaptchaAnswer: answer,
	})
	require.NoError(t, err)

	code := f.notifier.waitForCode(t)

	_, err = f.verifier.CompleteLogin(context.Background(), CompleteLoginInput{
		OTPToken: issued.OTPToken,
		OTPCode:  code,
		Location: &models.Location{Latitude: 95, Longitude: 10},
	})
	require.ErrorIs(t, err, apperrors.ErrLocationRequired)

	// The rejected location must not have burned the single-use code.
	session, err := f.verifier.CompleteLogin(context.Background(), CompleteLoginInput{
		OTPToken: issued.OTPToken,
		OTPCode:  code,
		Location: validLocation(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
}

func TestCompleteLoginWrongCode(t *testing.T) {
	f := newVerifierFixture(t)
	f.createUser(t, "asha@example.com", "9876543210", "s3cret-pass")

	captchaToken, answer := f.solveCaptcha(t)
	issued, err := f.verifier.BeginLogin(context.Background(), BeginLoginInput{
		Identifier:    "asha@example.com",
		Password:      "s3cret-pass",
		CaptchaToken:  captchaToken,
		CaptchaAnswer: answer,
	})
	require.NoError(t, err)

	code := f.notifier.waitForCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}

	_, err = f.verifier.CompleteLogin(context.Background(), CompleteLoginInput{
		OTPToken: issued.OTPToken,
		OTPCode:  wrong,
		Location: validLocation(),
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidOTP)
}

func TestAdminLoginFlow(t *testing.T) {
	f := newVerifierFixture(t)
	admin := f.createAdmin(t, "district@gov.example", "adm1n-pass")

	captchaToken, answer := f.solveCaptcha(t)
	issued, err := f.verifier.BeginLogin(context.Background(), BeginLoginInput{
		Flow:          FlowAdmin,
		Identifier:    "district@gov.example",
		Password:      "adm1n-pass",
		CaptchaToken:  captchaToken,
		CaptchaAnswer: answer,
	})
	require.NoError(t, err)

	code := f.notifier.waitForCode(t)

	session, err := f.verifier.CompleteLogin(context.Background(), CompleteLoginInput{
		OTPToken: issued.OTPToken,
		OTPCode:  code,
		Location: validLocation(),
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, session.Role)
	require.NotNil(t, session.Admin)
	require.Equal(t, admin.ID, session.Admin.ID)
	require.NotNil(t, session.Admin.LastLogin)

	var locations int64
	require.NoError(t, f.db.Model(&models.AdminLoginLocation{}).Where("admin_id = ?", admin.ID).Count(&locations).Error)
	require.EqualValues(t, 1, locations)
}

func TestSignupAndVerify(t *testing.T) {
	f := newVerifierFixture(t)

	captchaToken, answer := f.solveCaptcha(t)
	user, otpToken, err := f.verifier.Signup(context.Background(), SignupInput{
		Name:          "Meera Citizen",
		Email:         "Meera@Example.com",
		MobileNumber:  "9012345678",
		Password:      "pass-word-1",
		CaptchaToken:  captchaToken,
		CaptchaAnswer: answer,
		Location:      validLocation(),
	})
	require.NoError(t, err)
	require.Equal(t, "meera@example.com", user.Email)
	require.False(t, user.IsVerified)
	require.NotEmpty(t, otpToken)

	code := f.notifier.waitForCode(t)

	verified, err := f.verifier.VerifySignup(context.Background(), otpToken, code)
	require.NoError(t, err)
	require.True(t, verified.IsVerified)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "id = ?", user.ID).Error)
	require.True(t, stored.IsVerified)
}

func TestSignupRejectsDuplicates(t *testing.T) {
	f := newVerifierFixture(t)
	f.createUser(t, "asha@example.com", "9876543210", "s3cret-pass")

	captchaToken, answer := f.solveCaptcha(t)
	_, _, err := f.verifier.Signup(context.Background(), SignupInput{
		Name:          "Asha Again",
		Email:         "asha@example.com",
		MobileNumber:  "9000000000",
		Password:      "pass-word-1",
		CaptchaToken:  captchaToken,
		CaptchaAnswer: answer,
		Location:      validLocation(),
	})
	require.ErrorIs(t, err, apperrors.ErrDuplicateAccount)
}

func TestSignupOTPTokenCannotCompleteLogin(t *testing.T) {
	f := newVerifierFixture(t)

	captchaToken, answer := f.solveCaptcha(t)
	_, otpToken, err := f.verifier.Signup(context.Background(), SignupInput{
		Name:          "Meera Citizen",
		Email:         "meera@example.com",
		MobileNumber:  "9012345678",
		Password:      "pass-word-1",
		CaptchaToken:  captchaToken,
		CaptchaAnswer: answer,
		Location:      validLocation(),
	})
	require.NoError(t, err)

	code := f.notifier.waitForCode(t)

	_, err = f.verifier.CompleteLogin(context.Background(), CompleteLoginInput{
		OTPToken: otpToken,
		OTPCode:  code,
		Location: validLocation(),
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidOTP)
}
