package goAuthz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthz/jwt"
	"github.com/MrEthical07/goAuthz/permission"
)

// Config is the full engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	JWT     JWTConfig     `yaml:"jwt"`
	Refresh RefreshConfig `yaml:"refresh"`
	Roles   RolesConfig   `yaml:"roles"`
	Request RequestConfig `yaml:"request"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the token codec.
type JWTConfig struct {
	AccessTTL     time.Duration     `yaml:"access_ttl"`
	SigningMethod jwt.SigningMethod `yaml:"signing_method"` // hs256 (default) or ed25519
	Issuer        string            `yaml:"issuer"`
	Audience      string            `yaml:"audience"`
	Leeway        time.Duration     `yaml:"leeway"`
	KeyID         string            `yaml:"key_id"`

	// Secret is the HMAC key for hs256. It is copied into PrivateKey when
	// PrivateKey is empty.
	Secret         string `yaml:"secret"`
	PrivateKeyPath string `yaml:"private_key_path"`
	PublicKeyPath  string `yaml:"public_key_path"`

	PrivateKey []byte            `yaml:"-"`
	PublicKey  []byte            `yaml:"-"`
	VerifyKeys map[string][]byte `yaml:"-"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls reissue of tokens that expired recently.
type RefreshConfig struct {
	Enabled bool `yaml:"enabled"`
	// GraceDays is how many whole days past expiry a token may still be reissued.
	GraceDays int `yaml:"grace_days"`
	// Header carries the reissued token on the response.
	Header string `yaml:"header"`
}

/*
====================================
ROLES CONFIG
====================================
*/

// RolesConfig defines the role hierarchy.
type RolesConfig struct {
	// Weights maps role names to weights. Empty means the built-in
	// USER/MODERATOR/DEVELOPER/ADMIN table.
	Weights map[string]int `yaml:"weights"`
	// DefaultRole is required when an operation declares no requirement.
	DefaultRole string `yaml:"default_role"`
	// BypassRole is the lowest role that skips ownership resolvers.
	BypassRole string `yaml:"bypass_role"`
}

// RequestConfig bounds what transport adapters read from a request.
type RequestConfig struct {
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig toggles in-process metrics.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LoggingConfig configures the logger built by NewLogger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     24 * time.Hour,
			SigningMethod: jwt.MethodHS256,
		},
		Refresh: RefreshConfig{
			Enabled:   true,
			GraceDays: 7,
			Header:    HeaderNewToken,
		},
		Roles: RolesConfig{
			DefaultRole: string(permission.RoleUser),
			BypassRole:  string(permission.DefaultBypassRole),
		},
		Request: RequestConfig{
			MaxBodyBytes: 1 << 20,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultConfig returns the baseline configuration. Signing keys must still
// be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	if cfg.Roles.Weights != nil {
		out.Roles.Weights = make(map[string]int, len(cfg.Roles.Weights))
		for role, w := range cfg.Roles.Weights {
			out.Roles.Weights[role] = w
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// roleWeights returns the configured weight table, or the built-in one.
func (c *Config) roleWeights() map[permission.Role]int {
	if len(c.Roles.Weights) == 0 {
		return permission.DefaultWeights()
	}
	out := make(map[permission.Role]int, len(c.Roles.Weights))
	for name, w := range c.Roles.Weights {
		out[permission.Role(name)] = w
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. It does not
// parse key material; that happens when the codec is built.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	switch c.JWT.SigningMethod {
	case jwt.MethodHS256:
		if len(c.JWT.PrivateKey) == 0 && c.JWT.Secret == "" {
			return errors.New("hs256 requires Secret or PrivateKey")
		}
	case jwt.MethodEd25519:
		if len(c.JWT.PublicKey) == 0 && len(c.JWT.VerifyKeys) == 0 {
			return errors.New("ed25519 requires PublicKey or VerifyKeys")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Refresh
	if c.Refresh.GraceDays < 0 {
		return errors.New("Refresh GraceDays must be >= 0")
	}
	if c.Refresh.Enabled && strings.TrimSpace(c.Refresh.Header) == "" {
		return errors.New("Refresh Header must be set when refresh is enabled")
	}

	// Roles
	weights := c.roleWeights()
	byWeight := make(map[int]permission.Role, len(weights))
	for role, w := range weights {
		if strings.TrimSpace(string(role)) == "" {
			return errors.New("Roles Weights contains an empty role name")
		}
		if w <= 0 {
			return fmt.Errorf("Roles weight for %q must be > 0", role)
		}
		if other, dup := byWeight[w]; dup {
			a, b := sortedPair(role, other)
			return fmt.Errorf("Roles %q and %q share weight %d", a, b, w)
		}
		byWeight[w] = role
	}
	if _, ok := weights[permission.Role(c.Roles.DefaultRole)]; !ok {
		return fmt.Errorf("Roles DefaultRole %q is not a registered role", c.Roles.DefaultRole)
	}
	if _, ok := weights[permission.Role(c.Roles.BypassRole)]; !ok {
		return fmt.Errorf("Roles BypassRole %q is not a registered role", c.Roles.BypassRole)
	}

	// Request
	if c.Request.MaxBodyBytes <= 0 {
		return errors.New("Request MaxBodyBytes must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Logging
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unsupported Logging Format %q", c.Logging.Format)
	}

	return nil
}

func sortedPair(a, b permission.Role) (permission.Role, permission.Role) {
	if b < a {
		return b, a
	}
	return a, b
}
