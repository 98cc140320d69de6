package goAuthz

import (
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goAuthz/internal/audit"
	"github.com/MrEthical07/goAuthz/internal/flows"
	"github.com/MrEthical07/goAuthz/jwt"
	"github.com/MrEthical07/goAuthz/permission"
)

// Builder assembles an [Engine]. A Builder can be used for exactly one Build.
type Builder struct {
	config Config
	store  IdentityStore

	resolvers []resolverEntry

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

type resolverEntry struct {
	kind ResolverKind
	fn   ResolverFunc
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithIdentityStore sets the authoritative identity and role source. Required.
func (b *Builder) WithIdentityStore(store IdentityStore) *Builder {
	b.store = store
	return b
}

// WithResolver registers an ownership resolver under kind. The built-in
// kinds none and own_account cannot be replaced.
func (b *Builder) WithResolver(kind ResolverKind, fn ResolverFunc) *Builder {
	b.resolvers = append(b.resolvers, resolverEntry{kind: kind, fn: fn})
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Nil discards logs.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for token validation and grace-window math.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authorize latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns an immutable Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if cfg.JWT.SigningMethod == jwt.MethodHS256 && len(cfg.JWT.PrivateKey) == 0 && cfg.JWT.Secret != "" {
		cfg.JWT.PrivateKey = []byte(cfg.JWT.Secret)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, ErrIdentityStoreRequired
	}

	// -------- ROLE HIERARCHY --------
	hierarchy := permission.NewHierarchy()
	for role, weight := range cfg.roleWeights() {
		if err := hierarchy.Register(role, weight); err != nil {
			return nil, err
		}
	}
	if err := hierarchy.SetBypass(permission.Role(cfg.Roles.BypassRole)); err != nil {
		return nil, err
	}
	hierarchy.Freeze()

	// -------- RESOLVERS --------
	resolvers := newResolverRegistry()
	for _, entry := range b.resolvers {
		if err := resolvers.register(entry.kind, entry.fn); err != nil {
			return nil, err
		}
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- TOKEN CODEC --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: cfg.JWT.SigningMethod,
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = discardLogger()
	}

	engine := &Engine{
		config:     cloneConfig(cfg),
		hierarchy:  hierarchy,
		resolvers:  resolvers,
		store:      b.store,
		jwtManager: jm,
		logger:     logger,
		now:        now,
		defaultRequirement: Requirement{
			Roles:    []RoleType{RoleType(cfg.Roles.DefaultRole)},
			Resolver: ResolverNone,
		},
	}
	engine.flows = flows.Deps{
		Verify: flows.VerifyDeps{
			Verify:    jm.Verify,
			Decode:    jm.Decode,
			Reissue:   jm.Reissue,
			Now:       now,
			GraceDays: cfg.Refresh.GraceDays,
			Refresh:   cfg.Refresh.Enabled,
		},
		Authorize: flows.AuthorizeDeps{
			Exists:      b.store.Exists,
			CurrentRole: b.store.CurrentRole,
			Hierarchy:   hierarchy,
		},
	}
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
