package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/vocasync/models"
	"github.com/vnkhanh/vocasync/services"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// ExchangeToken POST /api/auth/exchange-token
// Authorization: Bearer <Google OAuth access token>
func (ac *AuthController) ExchangeToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Missing authorization",
			Message: "Authorization header with Bearer token is required",
		})
		return
	}

	res, err := ac.auth.ExchangeGoogleAccessToken(c.Request.Context(), token)
	if err != nil {
		respondError(c, err, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, res)
}

// Verify POST /api/auth/verify {"accessToken": "..."}
func (ac *AuthController) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Missing accessToken in request body"})
		return
	}

	res, err := ac.auth.ExchangeGoogleAccessToken(c.Request.Context(), req.AccessToken)
	if err != nil {
		respondError(c, err, "Authentication failed")
		return
	}
	c.JSON(http.StatusOK, models.VerifyResponse{Success: true, CustomToken: res.CustomToken, User: res.User})
}
