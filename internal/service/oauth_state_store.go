package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// OAuthStateTTL limita cuanto puede tardar el usuario en el consentimiento.
const OAuthStateTTL = 10 * time.Minute

// OAuthStateStore guarda los nonces "state" del flujo OAuth; cada uno se consume una sola vez.
type OAuthStateStore interface {
	Save(state, provider string, ttl time.Duration) error
	Consume(state, provider string) (bool, error)
}

type stateEntry struct {
	provider  string
	expiresAt time.Time
}

type memoryOAuthStateStore struct {
	mu    sync.Mutex
	items map[string]stateEntry
	now   func() time.Time
}

func NewMemoryOAuthStateStore() OAuthStateStore {
	return &memoryOAuthStateStore{
		items: make(map[string]stateEntry),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryOAuthStateStore) Save(state, provider string, ttl time.Duration) error {
	state = strings.TrimSpace(state)
	if state == "" {
		return errors.New("oauth state is empty")
	}
	if ttl <= 0 {
		ttl = OAuthStateTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.items {
		if now.After(e.expiresAt) {
			delete(s.items, k)
		}
	}
	s.items[state] = stateEntry{provider: provider, expiresAt: now.Add(ttl)}
	return nil
}

func (s *memoryOAuthStateStore) Consume(state, provider string) (bool, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[state]
	if !ok {
		return false, nil
	}
	delete(s.items, state)
	if s.now().After(e.expiresAt) {
		return false, nil
	}
	return e.provider == provider, nil
}

type redisKVClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

type redisOAuthStateStore struct {
	client redisKVClient
	prefix string
}

func NewRedisOAuthStateStore(client *redis.Client) OAuthStateStore {
	if client == nil {
		return nil
	}
	return &redisOAuthStateStore{
		client: client,
		prefix: "auth:oauth_state:",
	}
}

func (s *redisOAuthStateStore) Save(state, provider string, ttl time.Duration) error {
	state = strings.TrimSpace(state)
	if state == "" {
		return errors.New("oauth state is empty")
	}
	if ttl <= 0 {
		ttl = OAuthStateTTL
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+state, provider, ttl).Err()
}

func (s *redisOAuthStateStore) Consume(state, provider string) (bool, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	stored, err := s.client.GetDel(ctx, s.prefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored == provider, nil
}
