package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lexia-auth/internal/domain"
	"lexia-auth/internal/service"
)

// UserHandler mantiene dependencias para endpoints de perfil del usuario autenticado.
type UserHandler struct {
	responder
	userServ *service.UserService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, dev bool) *UserHandler {
	return &UserHandler{
		responder: responder{logger: logger, dev: dev},
		userServ:  userServ,
	}
}

// GetProfile maneja GET /users/profile.
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, _ := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"user": publicUser(user)})
}

// UpdateProfile maneja PUT /users/profile. Solo aplica los campos permitidos.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		FirstName                *string                          `json:"firstName" binding:"omitempty,min=1,max=50"`
		LastName                 *string                          `json:"lastName" binding:"omitempty,min=1,max=50"`
		UserType                 *string                          `json:"userType" binding:"omitempty,usertype"`
		NewsletterSubscribed     *bool                            `json:"newsletterSubscribed"`
		CommunicationPreferences *domain.CommunicationPreferences `json:"communicationPreferences"`
		Profile                  *domain.Profile                  `json:"profile"`
		AccessibilitySettings    *accessibilityRequest            `json:"accessibilitySettings"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, _ := CurrentUser(c)
	in := service.ProfileUpdate{
		FirstName:                req.FirstName,
		LastName:                 req.LastName,
		NewsletterSubscribed:     req.NewsletterSubscribed,
		CommunicationPreferences: req.CommunicationPreferences,
		Profile:                  req.Profile,
	}
	if req.AccessibilitySettings != nil {
		a := req.AccessibilitySettings.toUpdate()
		in.AccessibilitySettings = &a
	}
	if req.UserType != nil {
		t := domain.UserType(*req.UserType)
		in.UserType = &t
	}
	updated, err := h.userServ.UpdateProfile(c.Request.Context(), user.ID, in)
	if err != nil {
		h.fail(c, "update profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    publicUser(updated),
	})
}

// accessibilityRequest solo trae los ajustes enviados; el resto se conserva.
type accessibilityRequest struct {
	FontSize      *string `json:"fontSize" binding:"omitempty,fontsize"`
	HighContrast  *bool   `json:"highContrast"`
	ReducedMotion *bool   `json:"reducedMotion"`
	ScreenReader  *bool   `json:"screenReader"`
	DyslexiaFont  *bool   `json:"dyslexiaFont"`
}

func (r accessibilityRequest) toUpdate() service.AccessibilityUpdate {
	return service.AccessibilityUpdate{
		FontSize:      r.FontSize,
		HighContrast:  r.HighContrast,
		ReducedMotion: r.ReducedMotion,
		ScreenReader:  r.ScreenReader,
		DyslexiaFont:  r.DyslexiaFont,
	}
}

// UpdateAccessibility maneja PUT /users/accessibility.
func (h *UserHandler) UpdateAccessibility(c *gin.Context) {
	var req accessibilityRequest
	if !bindJSON(c, &req) {
		return
	}

	user, _ := CurrentUser(c)
	settings, err := h.userServ.UpdateAccessibility(c.Request.Context(), user.ID, req.toUpdate())
	if err != nil {
		h.fail(c, "update accessibility", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":               "Accessibility settings updated successfully",
		"accessibilitySettings": settings,
	})
}

// ChangePassword maneja PUT /users/password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,password"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, _ := CurrentUser(c)
	if err := h.userServ.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(c, "change password", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// DeleteAccount maneja DELETE /users/account.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	user, _ := CurrentUser(c)
	if err := h.userServ.DeleteAccount(c.Request.Context(), user.ID); err != nil {
		h.fail(c, "delete account", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

// Stats maneja GET /users/stats con el resumen de la propia cuenta.
func (h *UserHandler) Stats(c *gin.Context) {
	user, _ := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"stats": gin.H{
			"accountCreated":        user.CreatedAt,
			"lastLogin":             user.LastLogin,
			"emailVerified":         user.IsEmailVerified,
			"socialAccounts":        len(user.SocialAccounts),
			"userType":              user.UserType,
			"accessibilitySettings": user.AccessibilitySettings,
		},
	})
}

// Preferences maneja GET /users/preferences; sin sesion devuelve los valores por defecto.
func (h *UserHandler) Preferences(c *gin.Context) {
	settings := domain.DefaultAccessibilitySettings()
	user, ok := CurrentUser(c)
	if ok {
		settings = user.AccessibilitySettings
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated":         ok,
		"accessibilitySettings": settings,
	})
}
