package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lexia-auth/internal/domain"
	"lexia-auth/internal/service"
)

// AuthHandler atiende registro, login y verificacion de email.
type AuthHandler struct {
	responder
	userServ *service.UserService
	jwtServ  *service.JWTService
}

func NewAuthHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService, dev bool) *AuthHandler {
	return &AuthHandler{
		responder: responder{logger: logger, dev: dev},
		userServ:  userServ,
		jwtServ:   jwtServ,
	}
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		FirstName  string `json:"firstName" binding:"required,max=50"`
		LastName   string `json:"lastName" binding:"required,max=50"`
		Email      string `json:"email" binding:"required,email"`
		Password   string `json:"password" binding:"required,password"`
		UserType   string `json:"userType" binding:"required,usertype"`
		Newsletter bool   `json:"newsletter"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Email:                req.Email,
		Password:             req.Password,
		UserType:             domain.UserType(req.UserType),
		NewsletterSubscribed: req.Newsletter,
	})
	if err != nil {
		h.fail(c, "register", err)
		return
	}

	token, _, err := h.jwtServ.Issue(user.ID, h.jwtServ.TTL(false))
	if err != nil {
		h.fail(c, "issue token", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    publicUser(user),
	})
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		Remember bool   `json:"remember"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userServ.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	token, expiresAt, err := h.jwtServ.Issue(user.ID, h.jwtServ.TTL(req.Remember))
	if err != nil {
		h.fail(c, "issue token", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Login successful",
		"token":     token,
		"expiresAt": expiresAt,
		"user":      publicUser(user),
	})
}

// Me maneja GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, _ := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"user": publicUser(user)})
}

// Logout maneja POST /auth/logout. Los tokens no tienen estado; el cliente los descarta.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// VerifyEmail maneja POST /auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userServ.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		h.fail(c, "verify email", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified successfully",
		"user":    publicUser(user),
	})
}

// ResendVerification maneja POST /auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	user, _ := CurrentUser(c)
	if err := h.userServ.ResendVerification(c.Request.Context(), user.ID); err != nil {
		h.fail(c, "resend verification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification email sent"})
}
