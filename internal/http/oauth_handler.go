package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lexia-auth/internal/oauth"
	"lexia-auth/internal/service"
)

// OAuthHandler orquesta el flujo authorization-code con proveedores externos.
type OAuthHandler struct {
	logger      *zap.Logger
	providers   *oauth.Registry
	states      service.OAuthStateStore
	userServ    *service.UserService
	jwtServ     *service.JWTService
	frontendURL string
}

func NewOAuthHandler(
	logger *zap.Logger,
	providers *oauth.Registry,
	states service.OAuthStateStore,
	userServ *service.UserService,
	jwtServ *service.JWTService,
	frontendURL string,
) *OAuthHandler {
	return &OAuthHandler{
		logger:      logger,
		providers:   providers,
		states:      states,
		userServ:    userServ,
		jwtServ:     jwtServ,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Begin maneja GET /auth/:provider.
func (h *OAuthHandler) Begin(c *gin.Context) {
	name := strings.ToLower(c.Param("provider"))
	provider, ok := h.providers.Get(name)
	if !ok {
		abortJSON(c, http.StatusNotFound, "PROVIDER_NOT_FOUND", "Authentication provider not available")
		return
	}
	state := uuid.NewString()
	if err := h.states.Save(state, name, service.OAuthStateTTL); err != nil {
		h.logger.Error("save oauth state failed", zap.String("provider", name), zap.Error(err))
		h.redirectError(c, name+"_auth_failed")
		return
	}
	c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

// Callback maneja GET /auth/:provider/callback.
func (h *OAuthHandler) Callback(c *gin.Context) {
	name := strings.ToLower(c.Param("provider"))
	failed := name + "_auth_failed"
	provider, ok := h.providers.Get(name)
	if !ok {
		h.redirectError(c, failed)
		return
	}
	if denied := c.Query("error"); denied != "" {
		h.logger.Warn("oauth consent denied", zap.String("provider", name), zap.String("error", denied))
		h.redirectError(c, failed)
		return
	}

	valid, err := h.states.Consume(c.Query("state"), name)
	if err != nil || !valid {
		h.logger.Warn("oauth state rejected", zap.String("provider", name), zap.Error(err))
		h.redirectError(c, failed)
		return
	}

	ctx := c.Request.Context()
	profile, err := provider.Exchange(ctx, c.Query("code"))
	if err != nil {
		h.logger.Warn("oauth exchange failed", zap.String("provider", name), zap.Error(err))
		h.redirectError(c, failed)
		return
	}

	user, err := h.userServ.ResolveSocialAccount(ctx, name, profile)
	if err != nil {
		h.logger.Error("resolve social account failed", zap.String("provider", name), zap.Error(err))
		h.redirectError(c, failed)
		return
	}
	if !user.IsActive {
		h.redirectError(c, failed)
		return
	}

	userID := user.ID
	user, err = h.userServ.RecordLogin(ctx, userID)
	if err != nil {
		h.logger.Error("record oauth login failed", zap.String("user_id", userID), zap.Error(err))
		h.redirectError(c, "auth_callback_failed")
		return
	}
	token, _, err := h.jwtServ.Issue(user.ID, h.jwtServ.TTL(false))
	if err != nil {
		h.logger.Error("issue oauth token failed", zap.Error(err))
		h.redirectError(c, "auth_callback_failed")
		return
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/auth/success?token="+url.QueryEscape(token))
}

func (h *OAuthHandler) redirectError(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, h.frontendURL+"/login?error="+url.QueryEscape(code))
}
