package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lexia-auth/internal/service"
)

// Codigos de error devueltos junto al mensaje.
const (
	CodeAuthRequired        = "AUTH_REQUIRED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeAccountDeactivated  = "ACCOUNT_DEACTIVATED"
	CodeAccountLocked       = "ACCOUNT_LOCKED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInsufficientPerms   = "INSUFFICIENT_PERMISSIONS"
	CodeEmailNotVerified    = "EMAIL_NOT_VERIFIED"
	CodeAdminRequired       = "ADMIN_REQUIRED"
	CodeEmailTaken          = "EMAIL_TAKEN"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeInvalidVerification = "INVALID_VERIFICATION_TOKEN"
	CodeInternal            = "INTERNAL_ERROR"
)

const validationFailedMessage = "Validation failed"

type apiError struct {
	status  int
	code    string
	message string
}

// classify traduce errores de servicio a respuestas HTTP.
func classify(err error) (apiError, bool) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return apiError{http.StatusConflict, CodeEmailTaken, "User already exists with this email"}, true
	case errors.Is(err, service.ErrInvalidCredentials):
		return apiError{http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password"}, true
	case errors.Is(err, service.ErrAccountLocked):
		return apiError{http.StatusUnauthorized, CodeAccountLocked, "Account is temporarily locked due to too many failed login attempts"}, true
	case errors.Is(err, service.ErrAccountDeactivated):
		return apiError{http.StatusUnauthorized, CodeAccountDeactivated, "Account is deactivated"}, true
	case errors.Is(err, service.ErrUserNotFound):
		return apiError{http.StatusNotFound, CodeUserNotFound, "User not found"}, true
	case errors.Is(err, service.ErrCurrentPasswordIncorrect):
		return apiError{http.StatusBadRequest, CodeValidationFailed, "Current password is incorrect"}, true
	case errors.Is(err, service.ErrInvalidVerificationToken):
		return apiError{http.StatusBadRequest, CodeInvalidVerification, "Invalid or expired verification token"}, true
	case errors.Is(err, service.ErrAlreadyVerified):
		return apiError{http.StatusBadRequest, CodeValidationFailed, "Email is already verified"}, true
	case errors.Is(err, service.ErrInvalidUserType):
		return apiError{http.StatusBadRequest, CodeValidationFailed, "Invalid user type"}, true
	case errors.Is(err, service.ErrEmailSendFailure):
		return apiError{http.StatusServiceUnavailable, CodeInternal, "Email delivery unavailable"}, true
	case errors.Is(err, service.ErrAdminRequired):
		return apiError{http.StatusForbidden, CodeAdminRequired, "Access denied"}, true
	}
	return apiError{}, false
}

// responder centraliza el formato de errores de los handlers.
type responder struct {
	logger *zap.Logger
	dev    bool
}

func (r responder) fail(c *gin.Context, op string, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeValidation(c, verr.Fields)
		return
	}
	if apiErr, ok := classify(err); ok {
		abortJSON(c, apiErr.status, apiErr.code, apiErr.message)
		return
	}
	r.logger.Error(op+" failed", zap.Error(err))
	body := gin.H{"message": "Internal server error", "code": CodeInternal}
	if r.dev {
		body["error"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message, "code": code})
}

func writeValidation(c *gin.Context, fields []service.FieldError) {
	if fields == nil {
		fields = []service.FieldError{}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"message": validationFailedMessage,
		"code":    CodeValidationFailed,
		"errors":  fields,
	})
}
