// Package config loads daemon settings: built-in defaults, then an optional
// TOML file named by DEAUTH_CONFIG, then DEAUTH_* environment overrides.
// Settings are fixed for the life of the process.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/hashchain"
)

type Config struct {
	HTTPAddr string `toml:"http_addr"`
	GRPCAddr string `toml:"grpc_addr"` // empty disables the health server

	Env string `toml:"env"` // "dev" | "prod"

	CompanionURL   string        `toml:"companion_url"`
	RequestTimeout time.Duration `toml:"request_timeout"`

	// Lock policy
	DistanceThresholdM float64       `toml:"distance_threshold_m"`
	DistanceTimeoutS   float64       `toml:"distance_timeout_s"`
	CheckInterval      time.Duration `toml:"check_interval"`
	LockGrace          time.Duration `toml:"lock_grace"`

	// Session
	Identity         string        `toml:"identity"`
	SessionID        string        `toml:"session_id"`
	PollInterval     time.Duration `toml:"poll_interval"`
	HandshakeOnStart bool          `toml:"handshake_on_start"`
	DryRun           bool          `toml:"dry_run"`

	// Storage
	DBPath        string `toml:"db_path"`
	AuditLogPath  string `toml:"audit_log_path"`
	BadgeFile     string `toml:"badge_file"`
	BadgeDSN      string `toml:"badge_dsn"`
	HashAlgorithm string `toml:"hash_algorithm"`

	// Dev seeding (env = "dev" only)
	DevBadgeID       int    `toml:"dev_badge_id"`
	DevCredentialRef string `toml:"dev_credential_ref"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LockFile  string `toml:"lock_file"`
}

func Default() Config {
	return Config{
		HTTPAddr:           ":8080",
		GRPCAddr:           "127.0.0.1:8081",
		Env:                "prod",
		CompanionURL:       "http://192.168.1.50",
		RequestTimeout:     2 * time.Second,
		DistanceThresholdM: 2.2,
		DistanceTimeoutS:   13,
		CheckInterval:      time.Second,
		LockGrace:          2 * time.Second,
		Identity:           currentUser(),
		SessionID:          os.Getenv("XDG_SESSION_ID"),
		PollInterval:       time.Second,
		HandshakeOnStart:   true,
		DBPath:             "./data/deauth.db",
		AuditLogPath:       "./data/audit_log.txt",
		HashAlgorithm:      string(hashchain.SHA256),
		DevBadgeID:         1,
		LogLevel:           "info",
		LogFormat:          "json",
		LockFile:           "./data/deauth.lock",
	}
}

// Load builds the effective configuration and validates it.
func Load() (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("DEAUTH_CONFIG")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getenvDefault("DEAUTH_HTTP_ADDR", c.HTTPAddr)
	if v, ok := os.LookupEnv("DEAUTH_GRPC_ADDR"); ok {
		c.GRPCAddr = strings.TrimSpace(v)
	}
	c.Env = strings.ToLower(getenvDefault("DEAUTH_ENV", c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as prod
		c.Env = "prod"
	}

	c.CompanionURL = getenvDefault("DEAUTH_COMPANION_URL", c.CompanionURL)
	c.RequestTimeout = getenvDuration("DEAUTH_REQUEST_TIMEOUT", c.RequestTimeout)

	c.DistanceThresholdM = getenvFloat("DEAUTH_DISTANCE_THRESHOLD_M", c.DistanceThresholdM)
	c.DistanceTimeoutS = getenvFloat("DEAUTH_DISTANCE_TIMEOUT_S", c.DistanceTimeoutS)
	c.CheckInterval = getenvDuration("DEAUTH_CHECK_INTERVAL", c.CheckInterval)
	c.LockGrace = getenvDuration("DEAUTH_LOCK_GRACE", c.LockGrace)

	c.Identity = getenvDefault("DEAUTH_IDENTITY", c.Identity)
	c.SessionID = getenvDefault("DEAUTH_SESSION_ID", c.SessionID)
	c.PollInterval = getenvDuration("DEAUTH_POLL_INTERVAL", c.PollInterval)
	c.HandshakeOnStart = getenvBool("DEAUTH_HANDSHAKE_ON_START", c.HandshakeOnStart)
	c.DryRun = getenvBool("DEAUTH_DRY_RUN", c.DryRun)

	c.DBPath = getenvDefault("DEAUTH_DB_PATH", c.DBPath)
	c.AuditLogPath = getenvDefault("DEAUTH_AUDIT_LOG_PATH", c.AuditLogPath)
	c.BadgeFile = getenvDefault("DEAUTH_BADGE_FILE", c.BadgeFile)
	c.BadgeDSN = getenvDefault("DEAUTH_BADGE_DSN", c.BadgeDSN)
	c.HashAlgorithm = getenvDefault("DEAUTH_HASH_ALGORITHM", c.HashAlgorithm)

	c.DevBadgeID = getenvInt("DEAUTH_DEV_BADGE_ID", c.DevBadgeID)
	c.DevCredentialRef = getenvDefault("DEAUTH_DEV_CREDENTIAL_REF", c.DevCredentialRef)

	c.LogLevel = getenvDefault("DEAUTH_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenvDefault("DEAUTH_LOG_FORMAT", c.LogFormat)
	c.LockFile = getenvDefault("DEAUTH_LOCK_FILE", c.LockFile)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.DistanceThresholdM <= 0 {
		errs = append(errs, fmt.Errorf("distance_threshold_m must be positive, got %v", c.DistanceThresholdM))
	}
	if c.DistanceTimeoutS <= 0 {
		errs = append(errs, fmt.Errorf("distance_timeout_s must be positive, got %v", c.DistanceTimeoutS))
	}
	if c.CheckInterval <= 0 {
		errs = append(errs, errors.New("check_interval must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	if c.LockGrace < 0 {
		errs = append(errs, errors.New("lock_grace must not be negative"))
	}
	if strings.TrimSpace(c.Identity) == "" {
		errs = append(errs, errors.New("identity is required"))
	}
	if u, err := url.Parse(c.CompanionURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("companion_url must be an http(s) URL, got %q", c.CompanionURL))
	}
	if _, err := hashchain.ParseAlgorithm(c.HashAlgorithm); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.LogFormat); f != "json" && f != "text" {
		errs = append(errs, fmt.Errorf("log_format must be json or text, got %q", c.LogFormat))
	}
	if c.DevBadgeID < 0 || int64(c.DevBadgeID) > int64(^uint32(0)) {
		errs = append(errs, fmt.Errorf("dev_badge_id out of range: %d", c.DevBadgeID))
	}
	return errors.Join(errs...)
}

// DistanceTimeout is DistanceTimeoutS as a duration.
func (c Config) DistanceTimeout() time.Duration {
	return time.Duration(c.DistanceTimeoutS * float64(time.Second))
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
