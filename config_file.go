package goAuthz

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MrEthical07/goAuthz/jwt"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "GOAUTHZ_"

// LoadConfig reads a YAML file over the defaults, applies GOAUTHZ_*
// environment overrides, loads key files and validates the result.
// An empty path skips the file and uses defaults plus environment.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, fmt.Errorf("applying environment: %w", err)
	}

	if err := loadKeyMaterial(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	// JWT
	if v := os.Getenv(envPrefix + "JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv(envPrefix + "JWT_SIGNING_METHOD"); v != "" {
		cfg.JWT.SigningMethod = jwt.SigningMethod(v)
	}
	if v := os.Getenv(envPrefix + "JWT_ISSUER"); v != "" {
		cfg.JWT.Issuer = v
	}
	if v := os.Getenv(envPrefix + "JWT_AUDIENCE"); v != "" {
		cfg.JWT.Audience = v
	}
	if v := os.Getenv(envPrefix + "JWT_PRIVATE_KEY_PATH"); v != "" {
		cfg.JWT.PrivateKeyPath = v
	}
	if v := os.Getenv(envPrefix + "JWT_PUBLIC_KEY_PATH"); v != "" {
		cfg.JWT.PublicKeyPath = v
	}
	if v := os.Getenv(envPrefix + "JWT_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sJWT_ACCESS_TTL: %w", envPrefix, err)
		}
		cfg.JWT.AccessTTL = d
	}

	// Refresh
	if v := os.Getenv(envPrefix + "REFRESH_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sREFRESH_ENABLED: %w", envPrefix, err)
		}
		cfg.Refresh.Enabled = b
	}
	if v := os.Getenv(envPrefix + "REFRESH_GRACE_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREFRESH_GRACE_DAYS: %w", envPrefix, err)
		}
		cfg.Refresh.GraceDays = n
	}

	// Roles
	if v := os.Getenv(envPrefix + "ROLES_BYPASS"); v != "" {
		cfg.Roles.BypassRole = v
	}

	// Logging
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return nil
}

func loadKeyMaterial(cfg *Config) error {
	if cfg.JWT.PrivateKeyPath != "" {
		data, err := os.ReadFile(cfg.JWT.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("reading private key: %w", err)
		}
		cfg.JWT.PrivateKey = data
	}
	if cfg.JWT.PublicKeyPath != "" {
		data, err := os.ReadFile(cfg.JWT.PublicKeyPath)
		if err != nil {
			return fmt.Errorf("reading public key: %w", err)
		}
		cfg.JWT.PublicKey = data
	}
	return nil
}
