// Package pg implementa el adapter PostgreSQL del store de cuentas sobre pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/para/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	} else {
		poolCfg.MaxConns = 10
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	// Verificar conexión
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return &Conn{pool: pool}, nil
}

// Conn es una conexión activa.
type Conn struct {
	pool *pgxpool.Pool
}

func (c *Conn) Name() string { return "postgres" }

func (c *Conn) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *Conn) Close() error {
	c.pool.Close()
	return nil
}

func (c *Conn) Users() store.UserRepository { return &userRepo{pool: c.pool} }

// Stat expone las estadísticas del pool para métricas.
func (c *Conn) Stat() *pgxpool.Stat { return c.pool.Stat() }

// ─── UserRepository ───

type userRepo struct{ pool *pgxpool.Pool }

const selectUser = `
	SELECT id::text, username, email, password_hash, role, created_at, updated_at
	FROM user_account
`

func scanUser(row pgx.Row) (*store.UserAccount, error) {
	var u store.UserAccount
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *store.UserAccount) error {
	const q = `
		INSERT INTO user_account (id, username, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, q, u.ID, u.Username, u.Email, u.PasswordHash, u.Role).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if dup := duplicateFrom(err); dup != nil {
			return dup
		}
		return fmt.Errorf("pg: create user: %w", err)
	}
	return nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*store.UserAccount, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE lower(username) = lower($1)`, username))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("pg: get user by username: %w", err)
	}
	return u, err
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*store.UserAccount, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE lower(email) = lower($1)`, email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("pg: get user by email: %w", err)
	}
	return u, err
}

// duplicateFrom traduce unique_violation (23505) al campo que colisionó.
func duplicateFrom(err error) *store.DuplicateError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "email") {
		return &store.DuplicateError{Field: "email"}
	}
	return &store.DuplicateError{Field: "username"}
}
