package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrEthical07/goAuthz/permission"
	"github.com/jackc/pgx/v5"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *bool:
			*p = r.values[i].(bool)
		case **string:
			if r.values[i] == nil {
				*p = nil
				continue
			}
			s := r.values[i].(string)
			*p = &s
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type fakeQuerier struct {
	rows    map[string]fakeRow
	queries []string
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	q.queries = append(q.queries, sql)
	for prefix, row := range q.rows {
		if strings.HasPrefix(sql, prefix) {
			return row
		}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func TestNewPostgresStoreRejectsBadTableNames(t *testing.T) {
	if _, err := NewPostgresStore(&fakeQuerier{}, PostgresConfig{UsersTable: "users; DROP TABLE x"}); err == nil {
		t.Fatal("expected invalid table name to be rejected")
	}
	if _, err := NewPostgresStore(nil, PostgresConfig{}); err == nil {
		t.Fatal("expected nil querier to be rejected")
	}
	if _, err := NewPostgresStore(&fakeQuerier{}, PostgresConfig{UsersTable: "auth.users"}); err != nil {
		t.Fatalf("expected schema-qualified table to be accepted: %v", err)
	}
}

func TestPostgresStoreExistsAndRole(t *testing.T) {
	q := &fakeQuerier{rows: map[string]fakeRow{
		"SELECT EXISTS": {values: []any{true}},
		"SELECT role":   {values: []any{"MODERATOR"}},
	}}
	s, err := NewPostgresStore(q, PostgresConfig{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ok, err := s.Exists(context.Background(), 3)
	if err != nil || !ok {
		t.Fatalf("expected identity to exist, got %v %v", ok, err)
	}
	role, ok, err := s.CurrentRole(context.Background(), 3)
	if err != nil || !ok || role != permission.RoleModerator {
		t.Fatalf("unexpected role %q %v %v", role, ok, err)
	}
	if !strings.Contains(q.queries[0], "FROM users") || !strings.Contains(q.queries[1], "FROM user_roles") {
		t.Fatalf("unexpected queries %v", q.queries)
	}
}

func TestPostgresStoreMissingRole(t *testing.T) {
	q := &fakeQuerier{rows: map[string]fakeRow{}}
	s, _ := NewPostgresStore(q, PostgresConfig{})
	if _, ok, err := s.CurrentRole(context.Background(), 3); err != nil || ok {
		t.Fatalf("expected no role on ErrNoRows, got %v %v", ok, err)
	}

	q = &fakeQuerier{rows: map[string]fakeRow{"SELECT role": {values: []any{nil}}}}
	s, _ = NewPostgresStore(q, PostgresConfig{})
	if _, ok, err := s.CurrentRole(context.Background(), 3); err != nil || ok {
		t.Fatalf("expected no role on NULL, got %v %v", ok, err)
	}
}

func TestPostgresStorePropagatesErrors(t *testing.T) {
	boom := errors.New("connection reset")
	q := &fakeQuerier{rows: map[string]fakeRow{
		"SELECT EXISTS": {err: boom},
		"SELECT role":   {err: boom},
	}}
	s, _ := NewPostgresStore(q, PostgresConfig{})

	if _, err := s.Exists(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if _, _, err := s.CurrentRole(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
