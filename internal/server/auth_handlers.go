package server

import (
	"net/http"
	"time"

	"tokenbot/internal/api"
	"tokenbot/internal/auth"
	"tokenbot/internal/config"
	"tokenbot/internal/logger"

	"github.com/gin-gonic/gin"
)

type TokenRequest struct {
	APIKey  string `json:"api_key" validate:"required"`
	Role    string `json:"role" validate:"required,oneof=gateway admin"`
	ActorID int64  `json:"actor_id" validate:"gte=0"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken godoc
// @Summary      Exchange an API key for a service token
// @Description  The bot gateway and the admin console authenticate here with their configured keys. Admin tokens carry the operator's chat identity for the audit trail.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      TokenRequest  true  "Credentials"
// @Success      200      {object}  TokenResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Router       /auth/token [post]
func IssueToken(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
			return
		}

		if errs := ValidateStruct(req); len(errs) > 0 {
			RespondWithValidationErrors(c, errs)
			return
		}

		var keyHash string
		switch req.Role {
		case auth.RoleGateway:
			keyHash = cfg.GatewayKeyHash
		case auth.RoleAdmin:
			keyHash = cfg.AdminKeyHash
		}

		if !auth.CheckAPIKey(keyHash, req.APIKey) {
			logger.Error("Token issuance rejected", "role", req.Role, "client_ip", c.ClientIP())
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid api key"})
			return
		}

		token, err := auth.GenerateToken(req.ActorID, req.Role, cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to issue token"})
			return
		}

		c.JSON(http.StatusOK, TokenResponse{
			Token:     token,
			Role:      req.Role,
			ExpiresAt: time.Now().Add(auth.TokenTTL),
		})
	}
}
