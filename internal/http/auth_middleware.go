package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lexia-auth/internal/domain"
	"lexia-auth/internal/service"
)

const (
	currentUserKey   = "current_user"
	currentAdminKey  = "current_admin"
	adminEmailHeader = "admin-email"
)

// Authenticator resuelve el bearer token contra el almacen de usuarios.
type Authenticator struct {
	logger *zap.Logger
	jwt    *service.JWTService
	users  *service.UserService
	now    func() time.Time
}

func NewAuthenticator(logger *zap.Logger, jwtSvc *service.JWTService, users *service.UserService) *Authenticator {
	return &Authenticator{
		logger: logger,
		jwt:    jwtSvc,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type authFailure struct {
	status  int
	code    string
	message string
}

func (a *Authenticator) resolve(c *gin.Context) (domain.User, *authFailure) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		return domain.User{}, &authFailure{http.StatusUnauthorized, CodeAuthRequired, "Authentication required"}
	}
	claims, err := a.jwt.Verify(token)
	if err != nil {
		if errors.Is(err, service.ErrJWTExpired) {
			return domain.User{}, &authFailure{http.StatusUnauthorized, CodeTokenExpired, "Token expired"}
		}
		return domain.User{}, &authFailure{http.StatusUnauthorized, CodeInvalidToken, "Invalid token"}
	}
	user, err := a.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return domain.User{}, &authFailure{http.StatusUnauthorized, CodeUserNotFound, "User not found"}
		}
		a.logger.Error("auth user lookup failed", zap.Error(err))
		return domain.User{}, &authFailure{http.StatusInternalServerError, CodeInternal, "Authentication error"}
	}
	if !user.IsActive {
		return domain.User{}, &authFailure{http.StatusUnauthorized, CodeAccountDeactivated, "Account is deactivated"}
	}
	if domain.IsLocked(user, a.now()) {
		return domain.User{}, &authFailure{http.StatusUnauthorized, CodeAccountLocked, "Account is temporarily locked"}
	}
	return user, nil
}

// RequireAuth exige un token valido de una cuenta activa y sin bloqueo.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, failure := a.resolve(c)
		if failure != nil {
			abortJSON(c, failure.status, failure.code, failure.message)
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// OptionalAuth adjunta el usuario si el token es valido y nunca rechaza.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, failure := a.resolve(c); failure == nil {
			c.Set(currentUserKey, user)
		}
		c.Next()
	}
}

// RequireRole debe ir despues de RequireAuth.
func RequireRole(types ...domain.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, CodeAuthRequired, "Authentication required")
			return
		}
		for _, t := range types {
			if user.UserType == t {
				c.Next()
				return
			}
		}
		abortJSON(c, http.StatusForbidden, CodeInsufficientPerms, "Insufficient permissions")
	}
}

func RequireEmailVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, CodeAuthRequired, "Authentication required")
			return
		}
		if !user.IsEmailVerified {
			abortJSON(c, http.StatusForbidden, CodeEmailNotVerified, "Email verification required")
			return
		}
		c.Next()
	}
}

// AdminAuth identifica al administrador por el header admin-email.
func AdminAuth(logger *zap.Logger, admins *service.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.TrimSpace(c.GetHeader(adminEmailHeader))
		if email == "" {
			abortJSON(c, http.StatusUnauthorized, CodeAuthRequired, "Admin authentication required")
			return
		}
		admin, err := admins.Authorize(c.Request.Context(), email)
		if err != nil {
			if errors.Is(err, service.ErrAdminRequired) {
				abortJSON(c, http.StatusForbidden, CodeAdminRequired, "Access denied")
				return
			}
			logger.Error("admin lookup failed", zap.Error(err))
			abortJSON(c, http.StatusInternalServerError, CodeInternal, "Authentication error")
			return
		}
		c.Set(currentAdminKey, admin)
		c.Next()
	}
}

// CurrentUser obtiene el usuario autenticado desde el contexto.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(currentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("bearer "):])
}
