package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/MrEthical07/goAuthz/permission"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx the store needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresConfig names the tables the store reads. Users live in UsersTable
// keyed by id; roles in RolesTable as (user_id, role).
type PostgresConfig struct {
	UsersTable string
	RolesTable string
}

const (
	defaultUsersTable = "users"
	defaultRolesTable = "user_roles"
	pgPingTimeout     = 5 * time.Second
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresStore reads identities and role records from PostgreSQL.
type PostgresStore struct {
	db         Querier
	existsSQL  string
	roleSQL    string
	usersTable string
	rolesTable string
}

// NewPostgresStore returns a store reading through db. Table names must be
// plain or schema-qualified identifiers.
func NewPostgresStore(db Querier, cfg PostgresConfig) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("postgres querier required")
	}
	if cfg.UsersTable == "" {
		cfg.UsersTable = defaultUsersTable
	}
	if cfg.RolesTable == "" {
		cfg.RolesTable = defaultRolesTable
	}
	for _, table := range []string{cfg.UsersTable, cfg.RolesTable} {
		if !identifierPattern.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}

	return &PostgresStore{
		db:         db,
		existsSQL:  "SELECT EXISTS (SELECT 1 FROM " + cfg.UsersTable + " WHERE id = $1)",
		roleSQL:    "SELECT role FROM " + cfg.RolesTable + " WHERE user_id = $1 LIMIT 1",
		usersTable: cfg.UsersTable,
		rolesTable: cfg.RolesTable,
	}, nil
}

// OpenPostgresPool parses dsn, opens a pool and pings it.
func OpenPostgresPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pgPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func (s *PostgresStore) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, s.existsSQL, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("query %s: %w", s.usersTable, err)
	}
	return exists, nil
}

func (s *PostgresStore) CurrentRole(ctx context.Context, id int64) (permission.Role, bool, error) {
	var role *string
	err := s.db.QueryRow(ctx, s.roleSQL, id).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query %s: %w", s.rolesTable, err)
	}
	if role == nil || *role == "" {
		return "", false, nil
	}
	return permission.Role(*role), true, nil
}
