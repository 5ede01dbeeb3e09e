package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lexia-auth/internal/domain"
	"lexia-auth/internal/repository"
)

type AdminSeedInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// SeedAdmin crea una cuenta administradora o promueve la existente con ese email.
// La promocion conserva la contraseña actual. Devuelve true si la cuenta es nueva.
func (s *UserService) SeedAdmin(ctx context.Context, in AdminSeedInput) (domain.User, bool, error) {
	emailAddr := normalizeEmail(in.Email)
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return domain.User{}, false, &ValidationError{Fields: []FieldError{{Field: "email", Message: "Please provide a valid email"}}}
	}

	existing, err := s.users.FindOne(ctx, repository.Query{domain.FieldEmail: emailAddr})
	switch {
	case err == nil:
		promoted, err := s.users.Update(ctx, existing.ID, repository.Update{
			domain.FieldIsAdmin:                true,
			domain.FieldUserType:               domain.UserTypeAdmin,
			domain.FieldIsEmailVerified:        true,
			domain.FieldEmailVerificationToken: nil,
			domain.FieldIsActive:               true,
		})
		if err != nil {
			return domain.User{}, false, fmt.Errorf("promote admin: %w", err)
		}
		s.logger.Info("user promoted to admin", zap.String("user_id", promoted.ID))
		return promoted, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return domain.User{}, false, err
	}

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	verr := &ValidationError{}
	if msg := nameProblem(firstName, "First name"); msg != "" {
		verr.add("firstName", msg)
	}
	if msg := nameProblem(lastName, "Last name"); msg != "" {
		verr.add("lastName", msg)
	}
	if msg := PasswordProblem(in.Password); msg != "" {
		verr.add("password", msg)
	}
	if err := verr.orNil(); err != nil {
		return domain.User{}, false, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, false, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	created, err := s.users.Insert(ctx, domain.User{
		FirstName:                firstName,
		LastName:                 lastName,
		Email:                    emailAddr,
		PasswordHash:             hash,
		UserType:                 domain.UserTypeAdmin,
		IsAdmin:                  true,
		IsEmailVerified:          true,
		CommunicationPreferences: domain.DefaultCommunicationPreferences(),
		SocialAccounts:           []domain.SocialAccount{},
		AccessibilitySettings:    domain.DefaultAccessibilitySettings(),
		IsActive:                 true,
		CreatedAt:                now,
	})
	if err != nil {
		return domain.User{}, false, err
	}
	s.logger.Info("admin account created", zap.String("user_id", created.ID))
	return created, true, nil
}
