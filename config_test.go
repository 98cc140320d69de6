package goAuthz

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthz/identity"
	"github.com/MrEthical07/goAuthz/jwt"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultConfigNeedsSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without secret to fail validation")
	}
	cfg.JWT.Secret = testSecret
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	if cfg.Refresh.GraceDays != 7 || !cfg.Refresh.Enabled || cfg.Refresh.Header != HeaderNewToken {
		t.Fatalf("unexpected refresh defaults %+v", cfg.Refresh)
	}
	if cfg.Roles.BypassRole != string(RoleDeveloper) || cfg.Roles.DefaultRole != string(RoleUser) {
		t.Fatalf("unexpected role defaults %+v", cfg.Roles)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"zero ttl":           func(c *Config) { c.JWT.AccessTTL = 0 },
		"bad method":         func(c *Config) { c.JWT.SigningMethod = "rs256" },
		"ed25519 no key":     func(c *Config) { c.JWT.SigningMethod = jwt.MethodEd25519 },
		"large leeway":       func(c *Config) { c.JWT.Leeway = time.Hour },
		"negative grace":     func(c *Config) { c.Refresh.GraceDays = -1 },
		"no refresh header":  func(c *Config) { c.Refresh.Header = " " },
		"unknown default":    func(c *Config) { c.Roles.DefaultRole = "GUEST" },
		"unknown bypass":     func(c *Config) { c.Roles.BypassRole = "ROOT" },
		"zero weight":        func(c *Config) { c.Roles.Weights = map[string]int{"USER": 0, "DEVELOPER": 5} },
		"tied weights":       func(c *Config) { c.Roles.Weights = map[string]int{"USER": 10, "ADMIN": 10, "DEVELOPER": 30} },
		"zero body":          func(c *Config) { c.Request.MaxBodyBytes = 0 },
		"audit zero buffer":  func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
		"bad log level":      func(c *Config) { c.Logging.Level = "loud" },
		"bad log format":     func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigSigningMethodsMatchCodec(t *testing.T) {
	if got := DefaultConfig().JWT.SigningMethod; got != jwt.MethodHS256 {
		t.Fatalf("default signing method = %q, want %q", got, jwt.MethodHS256)
	}

	cfg := testConfig()
	cfg.JWT.SigningMethod = jwt.MethodEd25519
	cfg.JWT.PublicKey = []byte("public-key-bytes")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ed25519 with a public key should validate: %v", err)
	}

	t.Setenv("GOAUTHZ_JWT_SIGNING_METHOD", string(jwt.MethodEd25519))
	env := testConfig()
	if err := applyEnvOverrides(&env); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}
	if env.JWT.SigningMethod != jwt.MethodEd25519 {
		t.Fatalf("env signing method = %q", env.JWT.SigningMethod)
	}
}

func TestBuildRejectsTiedRoleWeights(t *testing.T) {
	cfg := testConfig()
	cfg.Roles.Weights = map[string]int{"USER": 10, "ADMIN": 10, "DEVELOPER": 30}

	_, err := New().WithConfig(cfg).WithIdentityStore(identity.NewMemoryStore()).Build()
	if err == nil {
		t.Fatal("expected Build to reject roles sharing a weight")
	}
	if want := `Roles "ADMIN" and "USER" share weight 10`; err.Error() != want {
		t.Fatalf("err = %q, want %q", err, want)
	}
}

func TestConfigCustomWeights(t *testing.T) {
	cfg := testConfig()
	cfg.Roles.Weights = map[string]int{"VIEWER": 1, "EDITOR": 5, "OWNER": 9}
	cfg.Roles.DefaultRole = "VIEWER"
	cfg.Roles.BypassRole = "OWNER"

	te := buildTestEngine(t, cfg, nil)
	h := te.Hierarchy()
	if !h.AtLeast("OWNER", "EDITOR") || h.AtLeast("VIEWER", "EDITOR") {
		t.Fatal("custom weights not applied")
	}
	if h.Known(RoleAdmin) {
		t.Fatal("built-in roles must not leak into a custom table")
	}
	if h.Bypass() != "OWNER" {
		t.Fatalf("unexpected bypass role %q", h.Bypass())
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := writeFile(t, "authz.yaml", `
jwt:
  secret: from-file-secret-0123456789abcdef
  access_ttl: 2h
  issuer: goauthz-test
refresh:
  grace_days: 3
roles:
  bypass_role: ADMIN
logging:
  level: debug
  format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.JWT.AccessTTL != 2*time.Hour || cfg.JWT.Issuer != "goauthz-test" {
		t.Fatalf("unexpected jwt config %+v", cfg.JWT)
	}
	if cfg.Refresh.GraceDays != 3 || !cfg.Refresh.Enabled {
		t.Fatalf("unexpected refresh config %+v", cfg.Refresh)
	}
	if cfg.Roles.BypassRole != "ADMIN" || cfg.Roles.DefaultRole != "USER" {
		t.Fatalf("unexpected roles config %+v", cfg.Roles)
	}
	if cfg.Request.MaxBodyBytes != 1<<20 {
		t.Fatal("unset fields must keep defaults")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeFile(t, "authz.yaml", "jwt:\n  secret: file-secret-0123456789abcdef\n")
	t.Setenv("GOAUTHZ_JWT_SECRET", "env-secret-0123456789abcdef")
	t.Setenv("GOAUTHZ_REFRESH_GRACE_DAYS", "14")
	t.Setenv("GOAUTHZ_REFRESH_ENABLED", "false")
	t.Setenv("GOAUTHZ_JWT_ACCESS_TTL", "30m")
	t.Setenv("GOAUTHZ_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.JWT.Secret != "env-secret-0123456789abcdef" {
		t.Fatal("environment must override file values")
	}
	if cfg.Refresh.GraceDays != 14 || cfg.Refresh.Enabled {
		t.Fatalf("unexpected refresh config %+v", cfg.Refresh)
	}
	if cfg.JWT.AccessTTL != 30*time.Minute || cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected overrides %+v %+v", cfg.JWT, cfg.Logging)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file error")
	}

	bad := writeFile(t, "bad.yaml", "jwt: [unterminated")
	if _, err := LoadConfig(bad); err == nil || !strings.Contains(err.Error(), "parsing config file") {
		t.Fatalf("expected parse error, got %v", err)
	}

	t.Setenv("GOAUTHZ_JWT_SECRET", testSecret)
	t.Setenv("GOAUTHZ_REFRESH_GRACE_DAYS", "seven")
	if _, err := LoadConfig(""); err == nil || !strings.Contains(err.Error(), "REFRESH_GRACE_DAYS") {
		t.Fatalf("expected env parse error, got %v", err)
	}
}

func TestLoadConfigKeyFiles(t *testing.T) {
	secretPath := writeFile(t, "hmac.key", "file-key-material-0123456789abcdef")
	t.Setenv("GOAUTHZ_JWT_PRIVATE_KEY_PATH", secretPath)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if string(cfg.JWT.PrivateKey) != "file-key-material-0123456789abcdef" {
		t.Fatal("private key file not loaded")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "GOAUTHZ_TEST_DOTENV_VALUE=loaded\n")
	t.Setenv("GOAUTHZ_TEST_DOTENV_VALUE", "")
	os.Unsetenv("GOAUTHZ_TEST_DOTENV_VALUE")

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env"), path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("GOAUTHZ_TEST_DOTENV_VALUE"); got != "loaded" {
		t.Fatalf("expected dotenv value, got %q", got)
	}
}
