package goAuthz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthz/identity"
)

const testSecret = "test-secret-0123456789abcdef0123456789"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	return cfg
}

type testEngine struct {
	*Engine
	clock *testClock
	store *identity.MemoryStore
}

func buildTestEngine(t *testing.T, cfg Config, configure func(*Builder)) *testEngine {
	t.Helper()

	clock := newTestClock()
	store := identity.NewMemoryStore()
	b := New().
		WithConfig(cfg).
		WithIdentityStore(store).
		WithClock(clock.Now)
	if configure != nil {
		configure(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, clock: clock, store: store}
}

func (te *testEngine) bearer(t *testing.T, id int64, role RoleType) string {
	t.Helper()
	token, err := te.IssueToken(Identity{ID: id, Role: role})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	return "Bearer " + token
}

type failingStore struct {
	err error
}

func (s failingStore) Exists(context.Context, int64) (bool, error) {
	return false, s.err
}

func (s failingStore) CurrentRole(context.Context, int64) (RoleType, bool, error) {
	return "", false, s.err
}

var errStoreDown = errors.New("store down")
