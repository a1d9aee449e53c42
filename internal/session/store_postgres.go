package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// PostgresStore persists actors in a single table keyed by session id.
type PostgresStore struct {
	db    *sql.DB
	table string
	clock func() time.Time
}

// PostgresStoreOption configures a PostgresStore.
type PostgresStoreOption func(*PostgresStore)

// WithTable overrides the table name.
func WithTable(name string) PostgresStoreOption {
	return func(s *PostgresStore) {
		if name != "" {
			s.table = name
		}
	}
}

// WithClock sets the clock used for updated_at.
func WithClock(clock func() time.Time) PostgresStoreOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewPostgresStore(db *sql.DB, opts ...PostgresStoreOption) *PostgresStore {
	s := &PostgresStore{
		db:    db,
		table: "current_actor",
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureSchema creates the table when missing. Two instances racing on
// CREATE TABLE IF NOT EXISTS can hit a unique violation on the catalog;
// that case means the table exists.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			session_id    TEXT PRIMARY KEY,
			ambassador_id BIGINT NOT NULL,
			actor         JSONB NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`, pq.QuoteIdentifier(s.table))
	if _, err := s.db.ExecContext(ctx, query); err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("create session table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (Actor, error) {
	query := fmt.Sprintf(`SELECT actor FROM %s WHERE session_id = $1`, pq.QuoteIdentifier(s.table))
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Actor{}, ErrNoActor
	}
	if err != nil {
		return Actor{}, fmt.Errorf("load actor: %w", err)
	}
	var a Actor
	if err := json.Unmarshal(raw, &a); err != nil {
		return Actor{}, fmt.Errorf("decode actor: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Save(ctx context.Context, id string, a Actor) error {
	if id == "" {
		return ErrEmptySessionID
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode actor: %w", err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (session_id, ambassador_id, actor, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET
			ambassador_id = EXCLUDED.ambassador_id,
			actor = EXCLUDED.actor,
			updated_at = EXCLUDED.updated_at
	`, pq.QuoteIdentifier(s.table))
	if _, err := s.db.ExecContext(ctx, query, id, a.Ambassador.ID, raw, s.clock()); err != nil {
		return fmt.Errorf("save actor: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, pq.QuoteIdentifier(s.table))
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("clear actor: %w", err)
	}
	return nil
}

// isUniqueViolation recognizes the error under both database/sql drivers
// the store can run on.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
