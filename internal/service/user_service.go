package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lexia-auth/internal/domain"
	"lexia-auth/internal/email"
	"lexia-auth/internal/events"
	"lexia-auth/internal/repository"
)

// UserService coordina reglas de negocio para cuentas.
type UserService struct {
	logger      *zap.Logger
	users       repository.UserStore
	hasher      PasswordHasher
	lockout     LockoutPolicy
	emailSender email.Sender
	events      events.Publisher
	frontendURL string
	now         func() time.Time
}

func NewUserService(
	logger *zap.Logger,
	users repository.UserStore,
	hasher PasswordHasher,
	lockout LockoutPolicy,
	emailSender email.Sender,
	publisher events.Publisher,
	frontendURL string,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	if lockout.MaxAttempts <= 0 || lockout.Duration <= 0 {
		lockout = DefaultLockoutPolicy()
	}
	if emailSender == nil {
		emailSender = email.NewDisabledSender("email sender not configured")
	}
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	return &UserService{
		logger:      logger,
		users:       users,
		hasher:      hasher,
		lockout:     lockout,
		emailSender: emailSender,
		events:      publisher,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrEmailTaken               = errors.New("user already exists with this email")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrAccountLocked            = errors.New("account is temporarily locked")
	ErrAccountDeactivated       = errors.New("account is deactivated")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	ErrAlreadyVerified          = errors.New("email already verified")
	ErrEmailSendFailure         = errors.New("email send failed")
	ErrOAuthInvalid             = errors.New("oauth data invalid")
)

type RegisterInput struct {
	FirstName            string
	LastName             string
	Email                string
	Password             string
	UserType             domain.UserType
	NewsletterSubscribed bool
}

// Register crea una cuenta con contraseña, la deja sin verificar y envia el enlace de verificacion.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	emailAddr := normalizeEmail(input.Email)
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)

	verr := &ValidationError{}
	if msg := nameProblem(firstName, "First name"); msg != "" {
		verr.add("firstName", msg)
	}
	if msg := nameProblem(lastName, "Last name"); msg != "" {
		verr.add("lastName", msg)
	}
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		verr.add("email", "Please provide a valid email")
	}
	if msg := PasswordProblem(input.Password); msg != "" {
		verr.add("password", msg)
	}
	if !SelfAssignableUserType(input.UserType) {
		verr.add("userType", "Please select a valid user type")
	}
	if err := verr.orNil(); err != nil {
		return domain.User{}, err
	}

	if _, err := s.users.FindOne(ctx, repository.Query{domain.FieldEmail: emailAddr}); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		FirstName:                firstName,
		LastName:                 lastName,
		Email:                    emailAddr,
		PasswordHash:             hash,
		UserType:                 input.UserType,
		EmailVerificationToken:   uuid.NewString(),
		NewsletterSubscribed:     input.NewsletterSubscribed,
		CommunicationPreferences: domain.DefaultCommunicationPreferences(),
		SocialAccounts:           []domain.SocialAccount{},
		AccessibilitySettings:    domain.DefaultAccessibilitySettings(),
		IsActive:                 true,
		LastLogin:                &now,
		CreatedAt:                now,
	}
	created, err := s.users.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	if err := s.sendVerification(ctx, created); err != nil {
		s.logger.Warn("send verification email failed", zap.Error(err), zap.String("user_id", created.ID))
	}
	s.publish(ctx, events.UserRegistered, created, "")
	return created, nil
}

// Login valida credenciales aplicando la politica de bloqueo.
func (s *UserService) Login(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.FindOne(ctx, repository.Query{domain.FieldEmail: emailAddr})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	now := s.now()
	state := LoginState{Attempts: user.LoginAttempts, LockUntil: user.LockUntil}
	if s.lockout.Locked(state, now) {
		return domain.User{}, ErrAccountLocked
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		next := s.lockout.Failure(state, now)
		if _, err := s.users.Update(ctx, user.ID, repository.Update{
			domain.FieldLoginAttempts: next.Attempts,
			domain.FieldLockUntil:     timeOrNil(next.LockUntil),
		}); err != nil {
			s.logger.Error("record failed login", zap.Error(err), zap.String("user_id", user.ID))
			return domain.User{}, err
		}
		if s.lockout.Locked(next, now) {
			s.logger.Warn("account locked after failed logins",
				zap.String("user_id", user.ID),
				zap.Int("attempts", next.Attempts),
			)
			s.publish(ctx, events.UserLocked, user, "")
			return domain.User{}, ErrAccountLocked
		}
		return domain.User{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return domain.User{}, ErrAccountDeactivated
	}

	reset := s.lockout.Success()
	updated, err := s.users.Update(ctx, user.ID, repository.Update{
		domain.FieldLoginAttempts: reset.Attempts,
		domain.FieldLockUntil:     nil,
		domain.FieldLastLogin:     now,
	})
	if err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

// GetByID resuelve la cuenta por id.
func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

// RecordLogin marca el ultimo acceso (flujo OAuth).
func (s *UserService) RecordLogin(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.Update(ctx, id, repository.Update{domain.FieldLastLogin: s.now()})
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

// ProfileUpdate lista los unicos campos que un usuario puede cambiar de su perfil.
type ProfileUpdate struct {
	FirstName                *string
	LastName                 *string
	UserType                 *domain.UserType
	NewsletterSubscribed     *bool
	CommunicationPreferences *domain.CommunicationPreferences
	Profile                  *domain.Profile
	AccessibilitySettings    *AccessibilityUpdate
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (domain.User, error) {
	verr := &ValidationError{}
	upd := repository.Update{}
	if in.FirstName != nil {
		name := strings.TrimSpace(*in.FirstName)
		if msg := nameProblem(name, "First name"); msg != "" {
			verr.add("firstName", msg)
		}
		upd[domain.FieldFirstName] = name
	}
	if in.LastName != nil {
		name := strings.TrimSpace(*in.LastName)
		if msg := nameProblem(name, "Last name"); msg != "" {
			verr.add("lastName", msg)
		}
		upd[domain.FieldLastName] = name
	}
	if in.UserType != nil {
		if !SelfAssignableUserType(*in.UserType) {
			verr.add("userType", "Please select a valid user type")
		}
		upd[domain.FieldUserType] = *in.UserType
	}
	if in.NewsletterSubscribed != nil {
		upd[domain.FieldNewsletterSubscribed] = *in.NewsletterSubscribed
	}
	if in.CommunicationPreferences != nil {
		upd[domain.FieldCommunicationPreferences] = *in.CommunicationPreferences
	}
	if in.Profile != nil {
		p := *in.Profile
		p.Bio = strings.TrimSpace(p.Bio)
		p.Location = strings.TrimSpace(p.Location)
		p.Website = strings.TrimSpace(p.Website)
		if len([]rune(p.Bio)) > 500 {
			verr.add("profile.bio", "Bio must be less than 500 characters")
		}
		if len([]rune(p.Location)) > 100 {
			verr.add("profile.location", "Location must be less than 100 characters")
		}
		if p.Website != "" && !validWebsite(p.Website) {
			verr.add("profile.website", "Please provide a valid website URL")
		}
		upd[domain.FieldProfile] = p
	}
	if a := in.AccessibilitySettings; a != nil && a.FontSize != nil && !ValidFontSize(*a.FontSize) {
		verr.add("accessibilitySettings.fontSize", "Invalid font size")
	}
	if err := verr.orNil(); err != nil {
		return domain.User{}, err
	}
	if in.AccessibilitySettings != nil {
		current, err := s.GetByID(ctx, id)
		if err != nil {
			return domain.User{}, err
		}
		upd[domain.FieldAccessibilitySettings] = in.AccessibilitySettings.apply(current.AccessibilitySettings)
	}
	if len(upd) == 0 {
		return s.GetByID(ctx, id)
	}
	user, err := s.users.Update(ctx, id, upd)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

// AccessibilityUpdate aplica solo los ajustes presentes sobre los actuales.
type AccessibilityUpdate struct {
	FontSize      *string
	HighContrast  *bool
	ReducedMotion *bool
	ScreenReader  *bool
	DyslexiaFont  *bool
}

func (a AccessibilityUpdate) apply(settings domain.AccessibilitySettings) domain.AccessibilitySettings {
	if a.FontSize != nil {
		settings.FontSize = *a.FontSize
	}
	if a.HighContrast != nil {
		settings.HighContrast = *a.HighContrast
	}
	if a.ReducedMotion != nil {
		settings.ReducedMotion = *a.ReducedMotion
	}
	if a.ScreenReader != nil {
		settings.ScreenReader = *a.ScreenReader
	}
	if a.DyslexiaFont != nil {
		settings.DyslexiaFont = *a.DyslexiaFont
	}
	return settings
}

func (s *UserService) UpdateAccessibility(ctx context.Context, id string, in AccessibilityUpdate) (domain.AccessibilitySettings, error) {
	if in.FontSize != nil && !ValidFontSize(*in.FontSize) {
		return domain.AccessibilitySettings{}, &ValidationError{Fields: []FieldError{{Field: "fontSize", Message: "Invalid font size"}}}
	}
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.AccessibilitySettings{}, err
	}
	settings := in.apply(user.AccessibilitySettings)
	updated, err := s.users.Update(ctx, id, repository.Update{domain.FieldAccessibilitySettings: settings})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.AccessibilitySettings{}, ErrUserNotFound
		}
		return domain.AccessibilitySettings{}, err
	}
	return updated.AccessibilitySettings, nil
}

// ChangePassword exige la contraseña actual y guarda el nuevo digest una sola vez.
func (s *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	if msg := PasswordProblem(next); msg != "" {
		return &ValidationError{Fields: []FieldError{{Field: "newPassword", Message: "New " + strings.ToLower(msg[:1]) + msg[1:]}}}
	}
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return ErrCurrentPasswordIncorrect
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.users.Update(ctx, id, repository.Update{domain.FieldPassword: hash}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *UserService) DeleteAccount(ctx context.Context, id string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.publish(ctx, events.UserDeleted, user, "")
	return nil
}

// VerifyEmail consume el token de verificacion enviado por correo.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.User{}, ErrInvalidVerificationToken
	}
	user, err := s.users.FindOne(ctx, repository.Query{domain.FieldEmailVerificationToken: token})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrInvalidVerificationToken
		}
		return domain.User{}, err
	}
	updated, err := s.users.Update(ctx, user.ID, repository.Update{
		domain.FieldIsEmailVerified:        true,
		domain.FieldEmailVerificationToken: nil,
	})
	if err != nil {
		return domain.User{}, err
	}
	s.publish(ctx, events.UserVerified, updated, "")
	return updated, nil
}

// ResendVerification rota el token y reenvia el correo.
func (s *UserService) ResendVerification(ctx context.Context, id string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}
	updated, err := s.users.Update(ctx, id, repository.Update{domain.FieldEmailVerificationToken: uuid.NewString()})
	if err != nil {
		return err
	}
	if err := s.sendVerification(ctx, updated); err != nil {
		s.logger.Warn("resend verification email failed", zap.Error(err), zap.String("user_id", id))
		return ErrEmailSendFailure
	}
	return nil
}

func (s *UserService) sendVerification(ctx context.Context, user domain.User) error {
	if user.EmailVerificationToken == "" {
		return nil
	}
	link := s.frontendURL + "/verify-email?token=" + url.QueryEscape(user.EmailVerificationToken)
	return s.emailSender.SendVerificationEmail(ctx, user.Email, user.FirstName, link)
}

func (s *UserService) publish(ctx context.Context, eventType string, user domain.User, provider string) {
	evt := events.Event{
		Type:       eventType,
		UserID:     user.ID,
		Email:      user.Email,
		Provider:   provider,
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn("publish account event failed", zap.String("event", eventType), zap.Error(err))
	}
}

func validWebsite(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + raw)
		if err != nil {
			return false
		}
	}
	return u.Host != "" && strings.Contains(u.Host, ".")
}

// timeOrNil evita guardar un puntero nil tipado, que los backends no tratan como borrado.
func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
