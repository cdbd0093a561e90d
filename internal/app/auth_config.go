package app

import (
	"github.com/jansathi/portal/internal/auth"
	"github.com/jansathi/portal/internal/cache"
	"github.com/jansathi/portal/pkg/captcha"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.UserTokenTTL
	if ttl <= 0 {
		ttl = auth.DefaultUserTokenTTL
	}

	return auth.JWTConfig{
		Secret:       c.JWT.Secret,
		Issuer:       c.JWT.Issuer,
		UserTokenTTL: ttl,
	}
}

// ChallengeServiceConfig converts AuthConfig into ChallengeService parameters.
// TTLs left at zero fall back to the service defaults.
func (c AuthConfig) ChallengeServiceConfig(store cache.Store, renderer captcha.Renderer) auth.ChallengeConfig {
	return auth.ChallengeConfig{
		Store:      store,
		Renderer:   renderer,
		CaptchaTTL: c.Challenge.CaptchaTTL,
		OTPTTL:     c.Challenge.OTPTTL,
	}
}
