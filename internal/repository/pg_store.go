package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lexia-auth/internal/domain"
)

const (
	pgUniqueViolation = "23505"
	pgSocialKey       = "user_social_identities_pkey"
)

// PgUserStore implementa UserStore guardando cada cuenta como documento jsonb.
type PgUserStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPgUserStore(pool *pgxpool.Pool) *PgUserStore {
	return &PgUserStore{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *PgUserStore) FindOne(ctx context.Context, q Query) (domain.User, error) {
	where, args, err := pgWhere(q)
	if err != nil {
		return domain.User{}, err
	}
	return s.queryOne(ctx, "pg find one", `SELECT doc FROM users WHERE `+where+` LIMIT 1`, args...)
}

func (s *PgUserStore) FindByID(ctx context.Context, id string) (domain.User, error) {
	return s.queryOne(ctx, "pg find by id", `SELECT doc FROM users WHERE id = $1`, id)
}

func (s *PgUserStore) FindBySocial(ctx context.Context, provider, providerID string) (domain.User, error) {
	probe, err := json.Marshal([]map[string]string{{"provider": provider, "providerId": providerID}})
	if err != nil {
		return domain.User{}, err
	}
	const query = `SELECT doc FROM users WHERE doc->'socialAccounts' @> $1::jsonb LIMIT 1`
	return s.queryOne(ctx, "pg find by social", query, string(probe))
}

func (s *PgUserStore) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	now := s.now()
	user.ID = uuid.NewString()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	doc, err := json.Marshal(user)
	if err != nil {
		return domain.User{}, fmt.Errorf("encode user: %w", err)
	}

	const query = `
		INSERT INTO users (id, email, created_at, doc)
		VALUES ($1, $2, $3, $4::jsonb)
	`
	if _, err := s.pool.Exec(ctx, query, user.ID, user.Email, user.CreatedAt, string(doc)); err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, pgDuplicate(err)
		}
		return domain.User{}, unavailable("pg insert", err)
	}
	return user, nil
}

func (s *PgUserStore) Update(ctx context.Context, id string, upd Update) (domain.User, error) {
	patch := make(map[string]any, len(upd)+1)
	unset := []string{}
	for k, v := range upd {
		if v == nil {
			unset = append(unset, k)
			continue
		}
		patch[k] = v
	}
	patch[domain.FieldUpdatedAt] = s.now()
	raw, err := json.Marshal(patch)
	if err != nil {
		return domain.User{}, fmt.Errorf("encode update: %w", err)
	}

	const query = `
		UPDATE users
		SET doc = (doc || $2::jsonb) - $3::text[],
		    email = COALESCE($2::jsonb->>'email', email)
		WHERE id = $1
		RETURNING doc
	`
	user, err := s.queryOne(ctx, "pg update", query, id, string(raw), unset)
	if isUniqueViolation(err) {
		return domain.User{}, pgDuplicate(err)
	}
	return user, err
}

func (s *PgUserStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return unavailable("pg delete", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgUserStore) List(ctx context.Context, f ListFilter) ([]domain.User, error) {
	var (
		conds []string
		args  []any
	)
	if f.UserType != "" {
		args = append(args, string(f.UserType))
		conds = append(conds, fmt.Sprintf("doc->>'userType' = $%d", len(args)))
	}
	if f.Verified != nil {
		args = append(args, *f.Verified)
		conds = append(conds, fmt.Sprintf("(doc->>'isEmailVerified')::boolean = $%d", len(args)))
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		args = append(args, term)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(position($%[1]d in lower(doc->>'firstName')) > 0 OR position($%[1]d in lower(doc->>'lastName')) > 0 OR position($%[1]d in email) > 0)", n))
	}

	query := `SELECT doc FROM users`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable("pg list", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, unavailable("pg list scan", err)
		}
		var u domain.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("pg list rows", err)
	}
	return users, nil
}

func (s *PgUserStore) Stats(ctx context.Context) (domain.UserStats, error) {
	var stats domain.UserStats
	const totals = `
		SELECT count(*),
		       count(*) FILTER (WHERE (doc->>'isEmailVerified')::boolean),
		       count(*) FILTER (WHERE (doc->>'isActive')::boolean)
		FROM users
	`
	if err := s.pool.QueryRow(ctx, totals).Scan(&stats.TotalUsers, &stats.VerifiedUsers, &stats.ActiveUsers); err != nil {
		return stats, unavailable("pg stats totals", err)
	}

	const byType = `
		SELECT doc->>'userType', count(*),
		       count(*) FILTER (WHERE (doc->>'isEmailVerified')::boolean)
		FROM users
		GROUP BY 1
		ORDER BY 2 DESC, 1
	`
	rows, err := s.pool.Query(ctx, byType)
	if err != nil {
		return stats, unavailable("pg stats by type", err)
	}
	for rows.Next() {
		var sum domain.UserTypeSummary
		var userType string
		if err := rows.Scan(&userType, &sum.Count, &sum.Verified); err != nil {
			rows.Close()
			return stats, unavailable("pg stats by type scan", err)
		}
		sum.UserType = domain.UserType(userType)
		sum.Unverified = sum.Count - sum.Verified
		stats.ByType = append(stats.ByType, sum)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, unavailable("pg stats by type rows", err)
	}

	const bySocial = `
		SELECT sa->>'provider', count(*)
		FROM users,
		     jsonb_array_elements(
		         CASE WHEN jsonb_typeof(doc->'socialAccounts') = 'array'
		              THEN doc->'socialAccounts' ELSE '[]'::jsonb END
		     ) AS sa
		GROUP BY 1
		ORDER BY 2 DESC, 1
	`
	rows, err = s.pool.Query(ctx, bySocial)
	if err != nil {
		return stats, unavailable("pg stats by social", err)
	}
	for rows.Next() {
		var pc domain.ProviderCount
		if err := rows.Scan(&pc.Provider, &pc.Count); err != nil {
			rows.Close()
			return stats, unavailable("pg stats by social scan", err)
		}
		stats.BySocial = append(stats.BySocial, pc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, unavailable("pg stats by social rows", err)
	}

	recent, err := s.List(ctx, ListFilter{Limit: recentUsersLimit})
	if err != nil {
		return stats, err
	}
	stats.Recent = recent
	return stats, nil
}

func (s *PgUserStore) queryOne(ctx context.Context, op, query string, args ...any) (domain.User, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, unavailable(op, err)
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}

// pgWhere traduce una Query a condiciones de igualdad jsonb.
// id y email usan sus columnas indexadas.
func pgWhere(q Query) (string, []any, error) {
	if len(q) == 0 {
		return "TRUE", nil, nil
	}
	keys := sortedKeys(q)
	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		v := q[k]
		switch k {
		case domain.FieldID, domain.FieldEmail:
			if str, ok := v.(string); ok {
				args = append(args, str)
				conds = append(conds, fmt.Sprintf("%s = $%d", k, len(args)))
				continue
			}
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return "", nil, fmt.Errorf("encode query value %q: %w", k, err)
		}
		args = append(args, k, string(raw))
		conds = append(conds, fmt.Sprintf("doc->($%d::text) = $%d::jsonb", len(args)-1, len(args)))
	}
	return strings.Join(conds, " AND "), args, nil
}

func sortedKeys(q Query) []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func pgDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == pgSocialKey {
		return ErrDuplicateSocial
	}
	return ErrDuplicateEmail
}
