package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/vnkhanh/vocasync/models"
	"github.com/vnkhanh/vocasync/utils"
)

const maxUIDLength = 128

var uidPattern = regexp.MustCompile(`^[a-zA-Z0-9_:\-]+$`)

// AuthService exchanges a Google access token for a session token.
type AuthService struct {
	userInfo UserInfoFetcher
	tokens   *utils.TokenIssuer
}

func NewAuthService(userInfo UserInfoFetcher, tokens *utils.TokenIssuer) *AuthService {
	return &AuthService{userInfo: userInfo, tokens: tokens}
}

// FormatGoogleUID builds the namespace id of a Google account.
func FormatGoogleUID(googleID string) (string, error) {
	if googleID == "" {
		return "", invalid("id", "Google ID must be a non-empty string")
	}
	uid := "google:" + googleID
	if len(uid) > maxUIDLength {
		return "", invalid("id", "UID exceeds maximum length (%d characters): %d", maxUIDLength, len(uid))
	}
	if !uidPattern.MatchString(uid) {
		return "", invalid("id", "UID contains invalid characters (only alphanumeric, dash, underscore, colon allowed)")
	}
	return uid, nil
}

func (a *AuthService) ExchangeGoogleAccessToken(ctx context.Context, accessToken string) (models.ExchangeResponse, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return models.ExchangeResponse{}, fmt.Errorf("%w: access token is empty", ErrUnauthorized)
	}

	info, err := a.userInfo.FetchUserInfo(ctx, accessToken)
	if err != nil {
		return models.ExchangeResponse{}, err
	}
	if info.ID == "" || info.Email == "" {
		return models.ExchangeResponse{}, invalid("userinfo", "Google UserInfo missing required fields (id, email)")
	}

	uid, err := FormatGoogleUID(info.ID)
	if err != nil {
		return models.ExchangeResponse{}, err
	}

	name := info.Name
	if name == "" {
		name, _, _ = strings.Cut(info.Email, "@")
	}
	var photo *string
	if info.Picture != "" {
		photo = &info.Picture
	}

	token, err := a.tokens.GenerateToken(uid, utils.Claims{
		Email:    info.Email,
		Name:     name,
		Picture:  info.Picture,
		Provider: "google",
	})
	if err != nil {
		return models.ExchangeResponse{}, err
	}

	return models.ExchangeResponse{
		CustomToken: token,
		User: models.AuthUser{
			UID:           uid,
			Email:         info.Email,
			DisplayName:   name,
			PhotoURL:      photo,
			EmailVerified: info.VerifiedEmail,
		},
	}, nil
}
