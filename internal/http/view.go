package http

import (
	"time"

	"lexia-auth/internal/domain"
)

// userView es la representacion publica de una cuenta. Nunca expone el hash
// de contraseña, el token de verificacion ni el estado de bloqueo.
type userView struct {
	ID                       string                          `json:"id"`
	FirstName                string                          `json:"firstName"`
	LastName                 string                          `json:"lastName"`
	FullName                 string                          `json:"fullName"`
	Email                    string                          `json:"email"`
	UserType                 domain.UserType                 `json:"userType"`
	IsAdmin                  bool                            `json:"isAdmin"`
	IsEmailVerified          bool                            `json:"isEmailVerified"`
	NewsletterSubscribed     bool                            `json:"newsletterSubscribed"`
	CommunicationPreferences domain.CommunicationPreferences `json:"communicationPreferences"`
	SocialAccounts           []domain.SocialAccount          `json:"socialAccounts"`
	Profile                  domain.Profile                  `json:"profile"`
	AccessibilitySettings    domain.AccessibilitySettings    `json:"accessibilitySettings"`
	IsActive                 bool                            `json:"isActive"`
	LastLogin                *time.Time                      `json:"lastLogin,omitempty"`
	CreatedAt                time.Time                       `json:"createdAt"`
	UpdatedAt                time.Time                       `json:"updatedAt"`
}

func publicUser(u domain.User) userView {
	social := u.SocialAccounts
	if social == nil {
		social = []domain.SocialAccount{}
	}
	return userView{
		ID:                       u.ID,
		FirstName:                u.FirstName,
		LastName:                 u.LastName,
		FullName:                 domain.FullName(u),
		Email:                    u.Email,
		UserType:                 u.UserType,
		IsAdmin:                  u.IsAdmin,
		IsEmailVerified:          u.IsEmailVerified,
		NewsletterSubscribed:     u.NewsletterSubscribed,
		CommunicationPreferences: u.CommunicationPreferences,
		SocialAccounts:           social,
		Profile:                  u.Profile,
		AccessibilitySettings:    u.AccessibilitySettings,
		IsActive:                 u.IsActive,
		LastLogin:                u.LastLogin,
		CreatedAt:                u.CreatedAt,
		UpdatedAt:                u.UpdatedAt,
	}
}

func publicUsers(users []domain.User) []userView {
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, publicUser(u))
	}
	return out
}
