package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lexia-auth/internal/domain"
	"lexia-auth/internal/events"
	"lexia-auth/internal/oauth"
	"lexia-auth/internal/repository"
)

// ResolveSocialAccount encuentra, vincula o crea la cuenta de una identidad externa.
// Orden: identidad ya vinculada, luego cuenta con el mismo email, luego alta nueva.
func (s *UserService) ResolveSocialAccount(ctx context.Context, provider string, profile oauth.Profile) (domain.User, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	profile.ID = strings.TrimSpace(profile.ID)
	if provider == "" || profile.ID == "" {
		return domain.User{}, ErrOAuthInvalid
	}
	emailAddr := normalizeEmail(profile.Email)

	user, err := s.users.FindBySocial(ctx, provider, profile.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	account := domain.SocialAccount{
		Provider:       provider,
		ProviderID:     profile.ID,
		Email:          emailAddr,
		DisplayName:    strings.TrimSpace(profile.DisplayName),
		ProfilePicture: profile.Picture,
	}

	if emailAddr != "" {
		existing, err := s.users.FindOne(ctx, repository.Query{domain.FieldEmail: emailAddr})
		switch {
		case err == nil:
			return s.linkSocialAccount(ctx, existing, account)
		case !errors.Is(err, repository.ErrNotFound):
			return domain.User{}, err
		}
	}

	return s.createSocialUser(ctx, provider, profile, account)
}

func (s *UserService) linkSocialAccount(ctx context.Context, user domain.User, account domain.SocialAccount) (domain.User, error) {
	if domain.HasSocialAccount(user, account.Provider, account.ProviderID) {
		return user, nil
	}
	accounts := append(append([]domain.SocialAccount{}, user.SocialAccounts...), account)
	updated, err := s.users.Update(ctx, user.ID, repository.Update{domain.FieldSocialAccounts: accounts})
	if errors.Is(err, repository.ErrDuplicateSocial) {
		return s.users.FindBySocial(ctx, account.Provider, account.ProviderID)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("link %s account: %w", account.Provider, err)
	}
	s.logger.Info("social account linked",
		zap.String("user_id", updated.ID),
		zap.String("provider", account.Provider),
	)
	s.publish(ctx, events.UserSocialLinked, updated, account.Provider)
	return updated, nil
}

func (s *UserService) createSocialUser(ctx context.Context, provider string, profile oauth.Profile, account domain.SocialAccount) (domain.User, error) {
	first, last := socialNames(profile)
	userType := domain.UserTypeIndividual
	if provider == domain.ProviderLinkedIn {
		userType = domain.UserTypeProfessional
	}
	now := s.now()
	user := domain.User{
		FirstName:                first,
		LastName:                 last,
		Email:                    account.Email,
		UserType:                 userType,
		IsEmailVerified:          socialEmailVerified(provider, account.Email),
		CommunicationPreferences: domain.DefaultCommunicationPreferences(),
		SocialAccounts:           []domain.SocialAccount{account},
		Profile:                  domain.Profile{ProfilePicture: profile.Picture},
		AccessibilitySettings:    domain.DefaultAccessibilitySettings(),
		IsActive:                 true,
		LastLogin:                &now,
		CreatedAt:                now,
	}
	created, err := s.users.Insert(ctx, user)
	if errors.Is(err, repository.ErrDuplicateSocial) {
		// otra peticion concurrente creo la cuenta de esta identidad
		return s.users.FindBySocial(ctx, account.Provider, account.ProviderID)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("create %s user: %w", provider, err)
	}
	s.publish(ctx, events.UserRegistered, created, provider)
	return created, nil
}

// socialNames resuelve cada campo por separado: nombre/apellido del proveedor,
// despues displayName; el nombre cae ademas en username y "User".
func socialNames(p oauth.Profile) (string, string) {
	parts := strings.Fields(p.DisplayName)
	first := strings.TrimSpace(p.GivenName)
	if first == "" && len(parts) > 0 {
		first = parts[0]
	}
	if first == "" {
		first = strings.TrimSpace(p.Username)
	}
	if first == "" {
		first = "User"
	}
	last := strings.TrimSpace(p.FamilyName)
	if last == "" && len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}
	return first, last
}

func socialEmailVerified(provider, email string) bool {
	if provider == domain.ProviderGoogle {
		return true
	}
	return email != ""
}
