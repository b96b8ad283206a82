package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleUser is the profile returned by Google's UserInfo API.
type GoogleUser struct {
	ID            string
	Email         string
	Name          string
	Picture       string
	VerifiedEmail bool
}

// UserInfoFetcher verifies a Google OAuth access token by asking Google who it belongs to.
type UserInfoFetcher interface {
	FetchUserInfo(ctx context.Context, accessToken string) (GoogleUser, error)
}

// GoogleUserInfoClient calls the oauth2/v2 userinfo endpoint.
type GoogleUserInfoClient struct {
	endpoint string
	base     http.RoundTripper
	timeout  time.Duration
}

// NewGoogleUserInfoClient creates a client. endpoint overrides the API base URL
// and may be empty.
func NewGoogleUserInfoClient(endpoint string, timeout time.Duration) *GoogleUserInfoClient {
	return &GoogleUserInfoClient{endpoint: endpoint, base: http.DefaultTransport, timeout: timeout}
}

func (g *GoogleUserInfoClient) FetchUserInfo(ctx context.Context, accessToken string) (GoogleUser, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	hc := &http.Client{Transport: &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
		Base:   g.base,
	}}
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}
	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return GoogleUser{}, fmt.Errorf("create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		if uerr := upstreamError(err); uerr != nil {
			return GoogleUser{}, uerr
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			if gerr.Code >= http.StatusInternalServerError {
				return GoogleUser{}, fmt.Errorf("%w: Google UserInfo API returned %d", ErrUpstreamUnavailable, gerr.Code)
			}
			return GoogleUser{}, fmt.Errorf("%w: Google UserInfo API returned %d", ErrUnauthorized, gerr.Code)
		}
		return GoogleUser{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	return GoogleUser{
		ID:            info.Id,
		Email:         info.Email,
		Name:          info.Name,
		Picture:       info.Picture,
		VerifiedEmail: info.VerifiedEmail != nil && *info.VerifiedEmail,
	}, nil
}
