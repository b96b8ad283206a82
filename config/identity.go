package config

import (
	"fmt"

	"github.com/vnkhanh/vocasync/services"
	"github.com/vnkhanh/vocasync/utils"
)

// Identity is the trust model chosen by AUTH_MODE. Issuer and Auth are only
// set in session mode, where this service mints its own tokens.
type Identity struct {
	Resolver services.IdentityResolver
	Issuer   *utils.TokenIssuer
	Auth     *services.AuthService
}

func NewIdentity(cfg Config) (Identity, error) {
	switch cfg.AuthMode {
	case AuthSession:
		issuer, err := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
		if err != nil {
			return Identity{}, err
		}
		userInfo := services.NewGoogleUserInfoClient("", cfg.IdentityTimeout)
		return Identity{
			Resolver: services.NewSessionResolver(issuer),
			Issuer:   issuer,
			Auth:     services.NewAuthService(userInfo, issuer),
		}, nil
	case AuthGoogle:
		resolver, err := services.NewGoogleIDTokenResolver(cfg.GoogleClientID, cfg.IdentityTimeout)
		if err != nil {
			return Identity{}, err
		}
		return Identity{Resolver: resolver}, nil
	}
	return Identity{}, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
}
