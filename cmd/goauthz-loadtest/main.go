package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAuthz "github.com/MrEthical07/goAuthz"
	"github.com/MrEthical07/goAuthz/identity"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadtestSecret = "goauthz-loadtest-secret-0123456789abcdef"

func main() {
	var (
		users       = flag.Int("users", 10000, "number of identities to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (authorize + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "authz-loadtest", "identity key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()
	logger := goAuthz.NewLogger(goAuthz.LoggingConfig{Level: "warn", Format: "text"}, os.Stderr)

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := identity.NewRedisStore(client, *prefix)

	engine, err := buildEngine(store, logger, time.Now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	// Tokens minted four days in the past have been expired for three days,
	// which is inside the default grace window.
	past, err := buildEngine(store, logger, func() time.Time { return time.Now().Add(-4 * 24 * time.Hour) })
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer past.Close()

	fresh := make([]string, *users)
	stale := make([]string, *users)
	fmt.Printf("seeding %d identities...\n", *users)
	startSeed := time.Now()
	for i := 0; i < *users; i++ {
		id := int64(i + 1)
		role := roleFor(i)
		if err := store.Put(ctx, id, role); err != nil {
			fmt.Fprintf(os.Stderr, "put failed: %v\n", err)
			os.Exit(1)
		}
		if fresh[i], err = engine.IssueToken(goAuthz.Identity{ID: id, Role: role}); err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		if stale[i], err = past.IssueToken(goAuthz.Identity{ID: id, Role: role}); err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	requirement := &goAuthz.Requirement{
		Roles:    []goAuthz.RoleType{goAuthz.RoleUser},
		Resolver: goAuthz.ResolverOwnAccount,
	}
	authorizeStats := runPhase(ctx, engine, fresh, requirement, *ops, *concurrency, false)
	refreshStats := runPhase(ctx, engine, stale, requirement, *ops, *concurrency, true)

	fmt.Println("---- results ----")
	printStats("authorize", authorizeStats)
	printStats("refresh", refreshStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("allowed=%d denied=%d refreshed=%d bypassed=%d faults=%d\n",
		snap.Counters[goAuthz.MetricAuthorizeAllowed],
		snap.Counters[goAuthz.MetricAuthorizeDenied],
		snap.Counters[goAuthz.MetricTokenRefreshed],
		snap.Counters[goAuthz.MetricPrivilegeBypass],
		snap.Counters[goAuthz.MetricAuthorizeFault],
	)
}

func buildEngine(store goAuthz.IdentityStore, logger *slog.Logger, now func() time.Time) (*goAuthz.Engine, error) {
	cfg := goAuthz.DefaultConfig()
	cfg.JWT.Secret = loadtestSecret
	return goAuthz.New().
		WithConfig(cfg).
		WithIdentityStore(store).
		WithLogger(logger).
		WithClock(now).
		Build()
}

// roleFor spreads the population over the default roles, mostly USER.
func roleFor(i int) goAuthz.RoleType {
	switch {
	case i%100 == 0:
		return goAuthz.RoleAdmin
	case i%50 == 0:
		return goAuthz.RoleDeveloper
	case i%10 == 0:
		return goAuthz.RoleModerator
	default:
		return goAuthz.RoleUser
	}
}

func runPhase(ctx context.Context, engine *goAuthz.Engine, tokens []string, requirement *goAuthz.Requirement, ops, concurrency int, wantRefresh bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(tokens))
				req := goAuthz.Request{
					Method:        "GET",
					Path:          fmt.Sprintf("/users/%d", idx+1),
					Authorization: "Bearer " + tokens[idx],
					Params:        map[string]string{"id": fmt.Sprint(idx + 1)},
				}
				t0 := time.Now()
				d, err := engine.Authorize(ctx, req, requirement)
				elapsed := time.Since(t0)
				if err != nil || !d.Allowed || d.Refreshed != wantRefresh {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
