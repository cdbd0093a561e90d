package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jansathi/portal/internal/models"
)

// Token lifetimes. Admin sessions are fixed at a day; the user lifetime is
// configurable.
const (
	DefaultUserTokenTTL = 24 * time.Hour
	AdminTokenTTL       = 24 * time.Hour
)

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret       string
	Issuer       string
	UserTokenTTL time.Duration
	Clock        func() time.Time
}

// Claims represents the custom claims embedded in issued session tokens.
// Tokens are bearer credentials with no server-side revocation; expiry is the
// only forced invalidation, and logout is client-side discard.
type Claims struct {
	UserID   string           `json:"uid"`
	Role     string           `json:"role"`
	Location *models.Location `json:"loc,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenInput holds the parameters used when generating a new session token.
type AccessTokenInput struct {
	SubjectID string
	Role      string
	Location  *models.Location
}

// JWTService issues and validates signed session tokens.
type JWTService struct {
	secret  []byte
	issuer  string
	userTTL time.Duration
	now     func() time.Time
}

// NewJWTService constructs a JWTService instance when provided with the required configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	ttl := cfg.UserTokenTTL
	if ttl <= 0 {
		ttl = DefaultUserTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTService{
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		userTTL: ttl,
		now:     now,
	}, nil
}

// GenerateAccessToken issues a signed JWT for the supplied subject. The token
// lifetime depends on the role: admin roles get AdminTokenTTL, citizens the
// configured user lifetime.
func (s *JWTService) GenerateAccessToken(input AccessTokenInput) (string, error) {
	if input.SubjectID == "" {
		return "", errors.New("jwt: subject id is required")
	}
	if input.Role == "" {
		return "", errors.New("jwt: role is required")
	}

	now := s.now()
	ttl := s.userTTL
	if input.Role == models.RoleAdmin || input.Role == models.RoleSuperAdmin {
		ttl = AdminTokenTTL
	}

	claims := &Claims{
		UserID:   input.SubjectID,
		Role:     input.Role,
		Location: cloneLocation(input.Location),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   input.SubjectID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and validates a signed JWT, returning the application claims.
// It fails closed: any signature, expiry, or claim problem rejects the token.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("jwt: invalid issuer")
	}

	if claims.UserID == "" {
		return nil, errors.New("jwt: missing subject claim")
	}
	if claims.Role == "" {
		return nil, errors.New("jwt: missing role claim")
	}

	return &claims, nil
}

// cloneLocation guards against accidental external mutation of the embedded snapshot.
func cloneLocation(loc *models.Location) *models.Location {
	if loc == nil {
		return nil
	}
	cpy := *loc
	return &cpy
}
