// Package postgres provides a PostgreSQL implementation of storage.UserStore.
// It uses pgx/v5 for connection pooling and hands query results to callers
// as value.Cursor without buffering them.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/bote/pkg/debug"
	"github.com/rhuss/bote/pkg/storage"
	"github.com/rhuss/bote/pkg/value"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id       BIGINT PRIMARY KEY,
	username TEXT NOT NULL,
	password TEXT NOT NULL DEFAULT ''
)`

// uniqueViolation is the SQLSTATE of a duplicate key.
const uniqueViolation = "23505"

// Store is a PostgreSQL-backed UserStore.
type Store struct {
	pool  *pgxpool.Pool
	query string
}

// Ensure Store implements storage.UserStore at compile time.
var _ storage.UserStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, the users table is created when missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool, query: cfg.Query}

	if cfg.MigrateOnStart {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Migrate creates the users table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createUsersTable)
	return err
}

// AddUser inserts u. It returns storage.ErrConflict if the ID is taken.
func (s *Store) AddUser(ctx context.Context, u storage.User) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO users (id, username, password) VALUES ($1, $2, $3)",
		u.ID, u.Username, u.Password,
	)
	if isDuplicateKey(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// ListUsers runs the configured query. The returned cursor holds a pool
// connection until it is drained or closed.
func (s *Store) ListUsers(ctx context.Context) (value.Cursor, error) {
	debug.Log("storage", "listing users", "sql", s.query)
	rows, err := s.pool.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	return NewCursor(rows), nil
}

// FindUser runs the configured query restricted to one id.
func (s *Store) FindUser(ctx context.Context, id int64) (value.Cursor, error) {
	debug.Log("storage", "finding user", "id", id)
	rows, err := s.pool.Query(ctx, findQuery(s.query), id)
	if err != nil {
		return nil, fmt.Errorf("querying user %d: %w", id, err)
	}
	return NewCursor(rows), nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func findQuery(list string) string {
	return "SELECT * FROM (" + list + ") AS u WHERE u.id = $1"
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
