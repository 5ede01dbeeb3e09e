package domain

import (
	"strings"
	"time"
)

// UserType clasifica a la persona usuaria dentro de la plataforma.
type UserType string

const (
	UserTypeIndividual   UserType = "individual"
	UserTypeParent       UserType = "parent"
	UserTypeEducator     UserType = "educator"
	UserTypeProfessional UserType = "professional"
	UserTypeResearcher   UserType = "researcher"
	UserTypeAdmin        UserType = "admin"
)

// UserTypes enumera los tipos validos en orden estable.
var UserTypes = []UserType{
	UserTypeIndividual,
	UserTypeParent,
	UserTypeEducator,
	UserTypeProfessional,
	UserTypeResearcher,
	UserTypeAdmin,
}

// Valid indica si el tipo pertenece a la enumeracion.
func (t UserType) Valid() bool {
	for _, v := range UserTypes {
		if v == t {
			return true
		}
	}
	return false
}

const (
	FontSizeSmall      = "small"
	FontSizeMedium     = "medium"
	FontSizeLarge      = "large"
	FontSizeExtraLarge = "extra-large"
)

// Proveedores OAuth soportados.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
	ProviderGitHub   = "github"
	ProviderLinkedIn = "linkedin"
)

// SocialAccount vincula una identidad externa a la cuenta.
type SocialAccount struct {
	Provider       string `json:"provider" bson:"provider"`
	ProviderID     string `json:"providerId" bson:"providerId"`
	Email          string `json:"email,omitempty" bson:"email,omitempty"`
	DisplayName    string `json:"displayName,omitempty" bson:"displayName,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`
}

type AccessibilitySettings struct {
	FontSize      string `json:"fontSize" bson:"fontSize"`
	HighContrast  bool   `json:"highContrast" bson:"highContrast"`
	ReducedMotion bool   `json:"reducedMotion" bson:"reducedMotion"`
	ScreenReader  bool   `json:"screenReader" bson:"screenReader"`
	DyslexiaFont  bool   `json:"dyslexiaFont" bson:"dyslexiaFont"`
}

type CommunicationPreferences struct {
	Email bool `json:"email" bson:"email"`
	SMS   bool `json:"sms" bson:"sms"`
	Push  bool `json:"push" bson:"push"`
}

type Profile struct {
	Bio            string     `json:"bio,omitempty" bson:"bio,omitempty"`
	Location       string     `json:"location,omitempty" bson:"location,omitempty"`
	Website        string     `json:"website,omitempty" bson:"website,omitempty"`
	ProfilePicture string     `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	PhoneNumber    string     `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty"`
}

// User es el registro persistido de una cuenta. Los tags json son los nombres
// de campo compartidos por todos los backends de almacenamiento.
type User struct {
	ID                       string                   `json:"id" bson:"_id"`
	FirstName                string                   `json:"firstName" bson:"firstName"`
	LastName                 string                   `json:"lastName" bson:"lastName"`
	Email                    string                   `json:"email" bson:"email"`
	PasswordHash             string                   `json:"password,omitempty" bson:"password,omitempty"`
	UserType                 UserType                 `json:"userType" bson:"userType"`
	IsAdmin                  bool                     `json:"isAdmin" bson:"isAdmin"`
	IsEmailVerified          bool                     `json:"isEmailVerified" bson:"isEmailVerified"`
	EmailVerificationToken   string                   `json:"emailVerificationToken,omitempty" bson:"emailVerificationToken,omitempty"`
	NewsletterSubscribed     bool                     `json:"newsletterSubscribed" bson:"newsletterSubscribed"`
	CommunicationPreferences CommunicationPreferences `json:"communicationPreferences" bson:"communicationPreferences"`
	SocialAccounts           []SocialAccount          `json:"socialAccounts" bson:"socialAccounts"`
	Profile                  Profile                  `json:"profile" bson:"profile"`
	AccessibilitySettings    AccessibilitySettings    `json:"accessibilitySettings" bson:"accessibilitySettings"`
	IsActive                 bool                     `json:"isActive" bson:"isActive"`
	LastLogin                *time.Time               `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	LoginAttempts            int                      `json:"loginAttempts" bson:"loginAttempts"`
	LockUntil                *time.Time               `json:"lockUntil,omitempty" bson:"lockUntil,omitempty"`
	CreatedAt                time.Time                `json:"createdAt" bson:"createdAt"`
	UpdatedAt                time.Time                `json:"updatedAt" bson:"updatedAt"`
}

// Nombres de campo usados en consultas y actualizaciones parciales.
const (
	FieldID                       = "id"
	FieldFirstName                = "firstName"
	FieldLastName                 = "lastName"
	FieldEmail                    = "email"
	FieldPassword                 = "password"
	FieldUserType                 = "userType"
	FieldIsAdmin                  = "isAdmin"
	FieldIsEmailVerified          = "isEmailVerified"
	FieldEmailVerificationToken   = "emailVerificationToken"
	FieldNewsletterSubscribed     = "newsletterSubscribed"
	FieldCommunicationPreferences = "communicationPreferences"
	FieldSocialAccounts           = "socialAccounts"
	FieldProfile                  = "profile"
	FieldAccessibilitySettings    = "accessibilitySettings"
	FieldIsActive                 = "isActive"
	FieldLastLogin                = "lastLogin"
	FieldLoginAttempts            = "loginAttempts"
	FieldLockUntil                = "lockUntil"
	FieldCreatedAt                = "createdAt"
	FieldUpdatedAt                = "updatedAt"
)

// DefaultAccessibilitySettings devuelve la configuracion inicial de una cuenta nueva.
func DefaultAccessibilitySettings() AccessibilitySettings {
	return AccessibilitySettings{
		FontSize:     FontSizeMedium,
		DyslexiaFont: true,
	}
}

func DefaultCommunicationPreferences() CommunicationPreferences {
	return CommunicationPreferences{Email: true, Push: true}
}

// FullName une nombre y apellido.
func FullName(u User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsLocked reporta si la cuenta tiene un bloqueo vigente en now.
func IsLocked(u User, now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// HasSocialAccount reporta si la identidad (provider, providerID) ya esta vinculada.
func HasSocialAccount(u User, provider, providerID string) bool {
	for _, acc := range u.SocialAccounts {
		if acc.Provider == provider && acc.ProviderID == providerID {
			return true
		}
	}
	return false
}
