package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"lexia-auth/internal/domain"
)

// Source identifica el backend que atendio una operacion.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// StoreStatus describe el modo de almacenamiento para operadores.
type StoreStatus struct {
	Backend          string     `json:"backend"`
	Degraded         bool       `json:"degraded"`
	FallbackOps      int64      `json:"fallbackOps"`
	LastPrimaryError string     `json:"lastPrimaryError,omitempty"`
	LastFailureAt    *time.Time `json:"lastFailureAt,omitempty"`
}

type result[T any] struct {
	value  T
	source Source
}

// FallbackUserStore ejecuta cada operacion en el backend primario y, si este
// falla con ErrUnavailable, la repite una vez sobre el archivo de respaldo.
// Los backends no se sincronizan: lo escrito en uno no es visible en el otro.
type FallbackUserStore struct {
	logger      *zap.Logger
	backend     string
	primary     UserStore
	fallback    UserStore
	mu          sync.Mutex
	degraded    bool
	fallbackOps int64
	lastErr     string
	lastFailure time.Time
	now         func() time.Time
}

func NewFallbackUserStore(logger *zap.Logger, backend string, primary, fallback UserStore) *FallbackUserStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackUserStore{
		logger:   logger,
		backend:  backend,
		primary:  primary,
		fallback: fallback,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func attempt[T any](ctx context.Context, s *FallbackUserStore, op string, call func(UserStore) (T, error)) (result[T], error) {
	v, err := call(s.primary)
	if err == nil || !errors.Is(err, ErrUnavailable) {
		s.markHealthy(op)
		return result[T]{value: v, source: SourcePrimary}, err
	}

	// una peticion cancelada no dice nada sobre la salud del primario
	if ctx.Err() != nil {
		return result[T]{}, ctx.Err()
	}
	s.markDegraded(op, err)
	v, err = call(s.fallback)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrDuplicateEmail) && !errors.Is(err, ErrDuplicateSocial) {
			s.logger.Error("fallback store failed", zap.String("op", op), zap.Error(err))
		}
		return result[T]{source: SourceFallback}, err
	}
	return result[T]{value: v, source: SourceFallback}, nil
}

func (s *FallbackUserStore) markDegraded(op string, err error) {
	s.mu.Lock()
	wasDegraded := s.degraded
	s.degraded = true
	s.fallbackOps++
	s.lastErr = err.Error()
	s.lastFailure = s.now()
	s.mu.Unlock()

	if !wasDegraded {
		s.logger.Warn("primary store unavailable, switching to file fallback",
			zap.String("backend", s.backend),
			zap.String("op", op),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("serving from file fallback", zap.String("op", op), zap.Error(err))
}

func (s *FallbackUserStore) markHealthy(op string) {
	s.mu.Lock()
	wasDegraded := s.degraded
	s.degraded = false
	s.mu.Unlock()

	if wasDegraded {
		s.logger.Info("primary store recovered", zap.String("backend", s.backend), zap.String("op", op))
	}
}

// Status expone el estado actual del conmutador.
func (s *FallbackUserStore) Status() StoreStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := StoreStatus{
		Backend:          s.backend,
		Degraded:         s.degraded,
		FallbackOps:      s.fallbackOps,
		LastPrimaryError: s.lastErr,
	}
	if !s.lastFailure.IsZero() {
		t := s.lastFailure
		st.LastFailureAt = &t
	}
	return st
}

func (s *FallbackUserStore) FindOne(ctx context.Context, q Query) (domain.User, error) {
	r, err := attempt(ctx, s, "find_one", func(st UserStore) (domain.User, error) {
		return st.FindOne(ctx, q)
	})
	return r.value, err
}

func (s *FallbackUserStore) FindByID(ctx context.Context, id string) (domain.User, error) {
	r, err := attempt(ctx, s, "find_by_id", func(st UserStore) (domain.User, error) {
		return st.FindByID(ctx, id)
	})
	return r.value, err
}

func (s *FallbackUserStore) FindBySocial(ctx context.Context, provider, providerID string) (domain.User, error) {
	r, err := attempt(ctx, s, "find_by_social", func(st UserStore) (domain.User, error) {
		return st.FindBySocial(ctx, provider, providerID)
	})
	return r.value, err
}

func (s *FallbackUserStore) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	r, err := attempt(ctx, s, "insert", func(st UserStore) (domain.User, error) {
		return st.Insert(ctx, user)
	})
	if err == nil && r.source == SourceFallback {
		s.logger.Warn("user created in file fallback", zap.String("user_id", r.value.ID))
	}
	return r.value, err
}

func (s *FallbackUserStore) Update(ctx context.Context, id string, upd Update) (domain.User, error) {
	r, err := attempt(ctx, s, "update", func(st UserStore) (domain.User, error) {
		return st.Update(ctx, id, upd)
	})
	return r.value, err
}

func (s *FallbackUserStore) Delete(ctx context.Context, id string) error {
	_, err := attempt(ctx, s, "delete", func(st UserStore) (struct{}, error) {
		return struct{}{}, st.Delete(ctx, id)
	})
	return err
}

func (s *FallbackUserStore) List(ctx context.Context, f ListFilter) ([]domain.User, error) {
	r, err := attempt(ctx, s, "list", func(st UserStore) ([]domain.User, error) {
		return st.List(ctx, f)
	})
	return r.value, err
}

func (s *FallbackUserStore) Stats(ctx context.Context) (domain.UserStats, error) {
	r, err := attempt(ctx, s, "stats", func(st UserStore) (domain.UserStats, error) {
		return st.Stats(ctx)
	})
	return r.value, err
}
