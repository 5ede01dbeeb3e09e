package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"lexia-auth/internal/domain"
)

// FileUserStore persiste todas las cuentas en un unico archivo JSON.
// Cada escritura relee el archivo completo y lo reemplaza de forma atomica.
type FileUserStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileUserStore(path string) *FileUserStore {
	return &FileUserStore{
		path: path,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *FileUserStore) FindOne(_ context.Context, q Query) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return domain.User{}, err
	}
	want, err := normalize(q)
	if err != nil {
		return domain.User{}, fmt.Errorf("normalize query: %w", err)
	}
	for _, u := range users {
		doc, err := toDocument(u)
		if err != nil {
			return domain.User{}, err
		}
		if matchesQuery(doc, want) {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (s *FileUserStore) FindByID(ctx context.Context, id string) (domain.User, error) {
	return s.FindOne(ctx, Query{domain.FieldID: id})
}

func (s *FileUserStore) FindBySocial(_ context.Context, provider, providerID string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range users {
		if domain.HasSocialAccount(u, provider, providerID) {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (s *FileUserStore) Insert(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return domain.User{}, err
	}
	if user.Email != "" {
		for _, u := range users {
			if u.Email == user.Email {
				return domain.User{}, ErrDuplicateEmail
			}
		}
	}
	if socialTaken(users, "", user.SocialAccounts) {
		return domain.User{}, ErrDuplicateSocial
	}

	now := s.now()
	user.ID = s.nextID(users, now)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	users = append(users, user)
	if err := s.save(users); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *FileUserStore) Update(_ context.Context, id string, upd Update) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return domain.User{}, err
	}
	idx := indexByID(users, id)
	if idx < 0 {
		return domain.User{}, ErrNotFound
	}

	patch, err := normalize(upd)
	if err != nil {
		return domain.User{}, fmt.Errorf("normalize update: %w", err)
	}
	if email, ok := patch[domain.FieldEmail].(string); ok && email != "" {
		for i, u := range users {
			if i != idx && u.Email == email {
				return domain.User{}, ErrDuplicateEmail
			}
		}
	}

	doc, err := toDocument(users[idx])
	if err != nil {
		return domain.User{}, err
	}
	for k, v := range patch {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	updated, err := fromDocument(doc)
	if err != nil {
		return domain.User{}, err
	}
	updated.ID = users[idx].ID
	if _, ok := patch[domain.FieldSocialAccounts]; ok && socialTaken(users, updated.ID, updated.SocialAccounts) {
		return domain.User{}, ErrDuplicateSocial
	}
	updated.UpdatedAt = s.now()
	users[idx] = updated
	if err := s.save(users); err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

func (s *FileUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return err
	}
	idx := indexByID(users, id)
	if idx < 0 {
		return ErrNotFound
	}
	users = append(users[:idx], users[idx+1:]...)
	return s.save(users)
}

func (s *FileUserStore) List(_ context.Context, f ListFilter) ([]domain.User, error) {
	s.mu.Lock()
	users, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range newestFirst(users) {
		if !matchesFilter(u, f) {
			continue
		}
		out = append(out, u)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *FileUserStore) Stats(_ context.Context) (domain.UserStats, error) {
	s.mu.Lock()
	users, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return domain.UserStats{}, err
	}
	return summarize(users), nil
}

// nextID deriva el id del reloj y avanza si el milisegundo ya esta ocupado.
func (s *FileUserStore) nextID(users []domain.User, now time.Time) string {
	taken := make(map[string]struct{}, len(users))
	for _, u := range users {
		taken[u.ID] = struct{}{}
	}
	ms := now.UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if _, ok := taken[id]; !ok {
			return id
		}
		ms++
	}
}

func (s *FileUserStore) load() ([]domain.User, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.User{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user file: %w", err)
	}
	if len(raw) == 0 {
		return []domain.User{}, nil
	}
	var users []domain.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("decode user file: %w", err)
	}
	return users, nil
}

func (s *FileUserStore) save(users []domain.User) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	raw, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace user file: %w", err)
	}
	return nil
}

func indexByID(users []domain.User, id string) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

// Status reporta el modo solo-archivo.
func (s *FileUserStore) Status() StoreStatus {
	return StoreStatus{Backend: "file"}
}
