package service

import (
	"context"
	"errors"
	"strings"

	"lexia-auth/internal/domain"
	"lexia-auth/internal/repository"
)

// AdminSearchLimit acota los resultados de busqueda.
const AdminSearchLimit = 50

var (
	ErrAdminRequired   = errors.New("admin access required")
	ErrInvalidUserType = errors.New("invalid user type")
)

// AdminService expone consultas de solo lectura sobre todas las cuentas.
type AdminService struct {
	users repository.UserStore
}

func NewAdminService(users repository.UserStore) *AdminService {
	return &AdminService{users: users}
}

// Authorize resuelve el email declarado y exige isAdmin.
func (s *AdminService) Authorize(ctx context.Context, emailAddr string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrAdminRequired
	}
	user, err := s.users.FindOne(ctx, repository.Query{domain.FieldEmail: emailAddr})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrAdminRequired
		}
		return domain.User{}, err
	}
	if !user.IsAdmin {
		return domain.User{}, ErrAdminRequired
	}
	return user, nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx, repository.ListFilter{})
}

func (s *AdminService) ListByType(ctx context.Context, userType domain.UserType) ([]domain.User, error) {
	if !userType.Valid() {
		return nil, ErrInvalidUserType
	}
	return s.users.List(ctx, repository.ListFilter{UserType: userType})
}

func (s *AdminService) GetUser(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return user, err
}

// UserTypeSummary devuelve conteos por tipo ordenados por cantidad.
func (s *AdminService) UserTypeSummary(ctx context.Context) ([]domain.UserTypeSummary, error) {
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return stats.ByType, nil
}

func (s *AdminService) Stats(ctx context.Context) (domain.UserStats, error) {
	return s.users.Stats(ctx)
}

// SearchFilter combina texto libre, tipo y estado de verificacion. Todos opcionales.
type SearchFilter struct {
	Term     string
	UserType domain.UserType
	Verified *bool
}

// Search busca por nombre o email sin distinguir mayusculas.
func (s *AdminService) Search(ctx context.Context, f SearchFilter) ([]domain.User, error) {
	if f.UserType != "" && !f.UserType.Valid() {
		return nil, ErrInvalidUserType
	}
	return s.users.List(ctx, repository.ListFilter{
		UserType: f.UserType,
		Verified: f.Verified,
		Search:   strings.TrimSpace(f.Term),
		Limit:    AdminSearchLimit,
	})
}
