package models

// AuthUser is the profile returned with a freshly issued session token.
type AuthUser struct {
	UID           string  `json:"uid"`
	Email         string  `json:"email"`
	DisplayName   string  `json:"displayName"`
	PhotoURL      *string `json:"photoURL"`
	EmailVerified bool    `json:"emailVerified"`
}

// ExchangeResponse is the body of POST /api/auth/exchange-token.
type ExchangeResponse struct {
	CustomToken string   `json:"customToken"`
	User        AuthUser `json:"user"`
}

// VerifyRequest carries a Google access token in the body instead of the
// Authorization header.
type VerifyRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

type VerifyResponse struct {
	Success     bool     `json:"success"`
	CustomToken string   `json:"customToken"`
	User        AuthUser `json:"user"`
}
