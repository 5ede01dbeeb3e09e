package service

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"lexia-auth/internal/domain"
)

const (
	MinPasswordLength = 8
	MaxNameLength     = 50
)

// FieldError describe un campo invalido en una solicitud.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError agrupa los campos rechazados.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// PasswordProblem devuelve "" si la contraseña cumple la politica.
func PasswordProblem(pw string) string {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return "Password must contain both letters and numbers"
	}
	return ""
}

func nameProblem(name, label string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 1 || n > MaxNameLength {
		return fmt.Sprintf("%s must be between 1 and %d characters", label, MaxNameLength)
	}
	return ""
}

// SelfAssignableUserType reporta si el tipo puede elegirse sin privilegios.
func SelfAssignableUserType(t domain.UserType) bool {
	return t.Valid() && t != domain.UserTypeAdmin
}

// ValidFontSize acepta los tamaños de fuente soportados.
func ValidFontSize(size string) bool {
	switch size {
	case domain.FontSizeSmall, domain.FontSizeMedium, domain.FontSizeLarge, domain.FontSizeExtraLarge:
		return true
	}
	return false
}
