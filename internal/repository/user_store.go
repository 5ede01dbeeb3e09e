package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"lexia-auth/internal/domain"
)

var (
	// ErrNotFound indica que ningun registro coincide con la consulta.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail indica que el email ya pertenece a otra cuenta.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateSocial indica que la identidad (provider, providerId) ya esta vinculada a otra cuenta.
	ErrDuplicateSocial = errors.New("social identity already linked")
	// ErrUnavailable envuelve fallas de conexion o del driver del backend.
	ErrUnavailable = errors.New("store unavailable")
)

// Query filtra por igualdad sobre nombres de campo persistidos (domain.Field*).
type Query map[string]any

// Update reemplaza campos de primer nivel. Un valor nil limpia el campo.
type Update map[string]any

// ListFilter acota los listados administrativos.
type ListFilter struct {
	UserType domain.UserType
	Verified *bool
	Search   string
	Limit    int
}

// UserStore define el contrato de persistencia de cuentas.
type UserStore interface {
	FindOne(ctx context.Context, q Query) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
	FindBySocial(ctx context.Context, provider, providerID string) (domain.User, error)
	Insert(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, id string, upd Update) (domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]domain.User, error)
	Stats(ctx context.Context) (domain.UserStats, error)
}

const recentUsersLimit = 5

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// toDocument convierte un usuario en su forma JSON generica.
func toDocument(u domain.User) (map[string]any, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument(doc map[string]any) (domain.User, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return domain.User{}, err
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// normalize pasa valores Go arbitrarios por JSON para compararlos con documentos.
func normalize(m map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(m))
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// matchesQuery compara por igualdad estructural profunda cada campo de q.
func matchesQuery(doc map[string]any, q map[string]any) bool {
	for k, want := range q {
		if !reflect.DeepEqual(doc[k], want) {
			return false
		}
	}
	return true
}

func matchesFilter(u domain.User, f ListFilter) bool {
	if f.UserType != "" && u.UserType != f.UserType {
		return false
	}
	if f.Verified != nil && u.IsEmailVerified != *f.Verified {
		return false
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		if !strings.Contains(strings.ToLower(u.FirstName), s) &&
			!strings.Contains(strings.ToLower(u.LastName), s) &&
			!strings.Contains(strings.ToLower(u.Email), s) {
			return false
		}
	}
	return true
}

// summarize calcula estadisticas en memoria para backends sin agregaciones.
func summarize(users []domain.User) domain.UserStats {
	stats := domain.UserStats{TotalUsers: len(users)}
	byType := map[domain.UserType]*domain.UserTypeSummary{}
	bySocial := map[string]int{}
	for _, u := range users {
		if u.IsEmailVerified {
			stats.VerifiedUsers++
		}
		if u.IsActive {
			stats.ActiveUsers++
		}
		sum, ok := byType[u.UserType]
		if !ok {
			sum = &domain.UserTypeSummary{UserType: u.UserType}
			byType[u.UserType] = sum
		}
		sum.Count++
		if u.IsEmailVerified {
			sum.Verified++
		} else {
			sum.Unverified++
		}
		for _, acc := range u.SocialAccounts {
			bySocial[acc.Provider]++
		}
	}
	for _, sum := range byType {
		stats.ByType = append(stats.ByType, *sum)
	}
	sort.Slice(stats.ByType, func(i, j int) bool {
		if stats.ByType[i].Count != stats.ByType[j].Count {
			return stats.ByType[i].Count > stats.ByType[j].Count
		}
		return stats.ByType[i].UserType < stats.ByType[j].UserType
	})
	for provider, n := range bySocial {
		stats.BySocial = append(stats.BySocial, domain.ProviderCount{Provider: provider, Count: n})
	}
	sort.Slice(stats.BySocial, func(i, j int) bool {
		if stats.BySocial[i].Count != stats.BySocial[j].Count {
			return stats.BySocial[i].Count > stats.BySocial[j].Count
		}
		return stats.BySocial[i].Provider < stats.BySocial[j].Provider
	})

	recent := newestFirst(users)
	if len(recent) > recentUsersLimit {
		recent = recent[:recentUsersLimit]
	}
	stats.Recent = recent
	return stats
}

func newestFirst(users []domain.User) []domain.User {
	out := make([]domain.User, len(users))
	copy(out, users)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// socialTaken informa si alguna identidad de accounts ya pertenece a otra cuenta.
func socialTaken(users []domain.User, skipID string, accounts []domain.SocialAccount) bool {
	for _, a := range accounts {
		for _, u := range users {
			if u.ID != skipID && domain.HasSocialAccount(u, a.Provider, a.ProviderID) {
				return true
			}
		}
	}
	return false
}
