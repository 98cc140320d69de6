package goAuthz

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthz/identity"
)

func TestMetricsCountDecisions(t *testing.T) {
	te := buildTestEngine(t, testConfig(), nil)
	te.store.Put(1, RoleUser)
	header := te.bearer(t, 1, RoleUser)

	_, _ = te.Authorize(context.Background(), Request{Method: "GET", Path: "/a", Authorization: header}, nil)
	_, _ = te.Authorize(context.Background(), Request{Method: "GET", Path: "/a"}, nil)
	_, _ = te.Authorize(context.Background(), Request{Method: "GET", Path: "/a", Authorization: "Bearer !"}, nil)
	_, _ = te.Authorize(context.Background(), Request{Method: "GET", Path: "/a", Authorization: header},
		&Requirement{Roles: []RoleType{RoleAdmin}, Resolver: ResolverNone})

	snap := te.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricAuthorizeAllowed:  1,
		MetricAuthorizeDenied:   3,
		MetricDenyUnauthorized:  1,
		MetricDenyNotAcceptable: 1,
		MetricDenyForbidden:     1,
		MetricTokenMissing:      1,
		MetricTokenInvalid:      1,
	}
	for id, n := range want {
		if snap.Counters[id] != n {
			t.Fatalf("metric %d = %d, want %d", id, snap.Counters[id], n)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	te := buildTestEngine(t, testConfig(), func(b *Builder) { b.WithMetricsEnabled(false) })
	_, _ = te.Authorize(context.Background(), Request{Method: "GET", Path: "/a"}, nil)

	for id, n := range te.MetricsSnapshot().Counters {
		if n != 0 {
			t.Fatalf("metric %d recorded %d while disabled", id, n)
		}
	}
}

func TestMetricsLatencyHistogram(t *testing.T) {
	te := buildTestEngine(t, testConfig(), func(b *Builder) { b.WithLatencyHistograms(true) })
	for i := 0; i < 5; i++ {
		_, _ = te.Authorize(context.Background(), Request{Method: "GET", Path: "/a"}, nil)
	}

	var total uint64
	for _, n := range te.MetricsSnapshot().Histograms[MetricAuthorizeLatency] {
		total += n
	}
	if total != 5 {
		t.Fatalf("expected 5 latency observations, got %d", total)
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricAuthorizeAllowed, time.Millisecond)
	if len(m.Snapshot().Histograms[MetricAuthorizeAllowed]) != 0 {
		t.Fatal("only the latency metric carries a histogram")
	}
}

func BenchmarkAuthorize(b *testing.B) {
	cfg := testConfig()
	clock := newTestClock()
	store := identity.NewMemoryStore()
	store.Put(5, RoleModerator)
	engine, err := New().WithConfig(cfg).WithIdentityStore(store).WithClock(clock.Now).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	token, err := engine.IssueToken(Identity{ID: 5, Role: RoleModerator})
	if err != nil {
		b.Fatalf("IssueToken failed: %v", err)
	}
	req := Request{Method: "GET", Path: "/users/5", Authorization: "Bearer " + token, Params: map[string]string{"id": "5"}}
	reqmt := &Requirement{Roles: []RoleType{RoleUser}, Resolver: ResolverOwnAccount}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			d, err := engine.Authorize(context.Background(), req, reqmt)
			if err != nil || !d.Allowed {
				b.Fatalf("unexpected decision %+v %v", d, err)
			}
		}
	})
}
