package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/elit_catalog/internal/service"
	"github.com/GTDGit/elit_catalog/internal/utils"
	"github.com/GTDGit/elit_catalog/pkg/elit"
)

// CredentialSaver persists credentials that completed a successful load.
type CredentialSaver interface {
	Save(ctx context.Context, creds elit.Credentials) error
}

type AuthHandler struct {
	session *service.Session
	store   CredentialSaver
}

// NewAuthHandler creates an AuthHandler. store may be nil when caching is disabled.
func NewAuthHandler(session *service.Session, store CredentialSaver) *AuthHandler {
	return &AuthHandler{session: session, store: store}
}

// Login handles POST /v1/auth/login. The credentials are proven by a full
// catalog load; only then are they cached and a UI token issued.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		UserID int    `json:"userId" binding:"required,gt=0"`
		Token  string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	creds := elit.Credentials{UserID: req.UserID, Token: req.Token}
	if err := h.session.SetCredentials(creds); err != nil {
		utils.Error(c, 400, "INVALID_CREDENTIALS", "User id and token are required")
		return
	}

	ctx := c.Request.Context()
	catalog, err := h.session.LoadAll(ctx)
	if err != nil && !errors.Is(err, utils.ErrSuperseded) {
		h.session.ClearCredentials()
		log.Warn().Err(err).Int("user_id", req.UserID).Msg("Login failed")

		if elit.IsRejected(err) {
			utils.Error(c, 401, "AUTHENTICATION_FAILED", err.Error())
			return
		}
		utils.Error(c, 502, "UPSTREAM_ERROR", err.Error())
		return
	}
	if catalog == nil {
		catalog = h.session.Catalog()
	}

	if h.store != nil {
		if err := h.store.Save(ctx, creds); err != nil {
			log.Warn().Err(err).Msg("Failed to cache credentials")
		}
	}

	token, expiresAt, err := utils.GenerateJWT(req.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue token")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to issue token")
		return
	}

	log.Info().Int("user_id", req.UserID).Int("products", catalog.Len()).Msg("Login successful")
	utils.Success(c, 200, "Login successful", gin.H{
		"token":     token,
		"expiresAt": expiresAt,
		"userId":    req.UserID,
		"products":  catalog.Len(),
	})
}
