package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kode4food/signwiz/pkg/api"
)

type (
	// Config holds configuration settings for the wizard and its surfaces
	Config struct {
		// Vendor
		Environment  string
		BaseURL      string
		ProfilesFile string
		Tags         api.TerminalTags

		// API Server
		APIHost  string
		APIPort  int
		LogLevel string
		Env      string

		// Wizard
		PollInterval     time.Duration
		AutoDelay        time.Duration
		RequestTimeout   time.Duration
		StrictNavigation bool
		UploadPolling    bool
		SignatureClass   string
		EnableAutomation bool

		// Settings & History
		Store StoreConfig

		ShutdownTimeout time.Duration
	}

	// StoreConfig locates the optional Redis settings and history store.
	// An empty Addr disables the store
	StoreConfig struct {
		Addr         string
		Password     string
		DB           int
		Prefix       string
		HistoryLimit int
	}
)

const (
	DefaultEnvironment     = EnvDevelopment
	DefaultPollInterval    = 3 * time.Second
	DefaultAutoDelay       = 900 * time.Millisecond
	DefaultShutdownTimeout = 10 * time.Second
	DefaultSignatureClass  = "0"

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRedisPrefix  = "signwiz"
	DefaultHistoryLimit = 100

	MaxRedisDB      = 15
	MaxHistoryLimit = 100_000
	MinPollInterval = 10 * time.Millisecond
	MaxPollInterval = 10 * time.Minute
	MaxAutoDelay    = time.Minute
)

var (
	ErrInvalidAPIPort      = errors.New("invalid API port")
	ErrInvalidPollInterval = errors.New("poll interval out of range")
	ErrInvalidAutoDelay    = errors.New("auto delay out of range")
	ErrInvalidTimeout      = errors.New("request timeout cannot be negative")
	ErrEnvironmentEmpty    = errors.New("environment empty")
	ErrInvalidHistoryLimit = errors.New(
		"history limit must be positive",
	)
	ErrInvalidTerminalTags = errors.New(
		"terminal tags must be non-empty and distinct",
	)
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidBool     = errors.New("invalid boolean")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// vendor profile, polling, automation and the HTTP controller
func NewDefaultConfig() *Config {
	return &Config{
		Environment:      DefaultEnvironment,
		Tags:             api.DefaultTerminalTags(),
		APIHost:          DefaultAPIHost,
		APIPort:          DefaultAPIPort,
		LogLevel:         "info",
		Env:              "dev",
		PollInterval:     DefaultPollInterval,
		AutoDelay:        DefaultAutoDelay,
		UploadPolling:    true,
		SignatureClass:   DefaultSignatureClass,
		EnableAutomation: true,
		Store: StoreConfig{
			Prefix:       DefaultRedisPrefix,
			HistoryLimit: DefaultHistoryLimit,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	loadEnvString("ENV", &c.Env)
	loadEnvString("SIGNWIZ_ENVIRONMENT", &c.Environment)
	loadEnvString("SIGNWIZ_BASE_URL", &c.BaseURL)
	loadEnvString("SIGNWIZ_PROFILES_FILE", &c.ProfilesFile)
	loadEnvString("SIGNATURE_CLASS", &c.SignatureClass)
	loadEnvString("API_HOST", &c.APIHost)
	loadEnvString("LOG_LEVEL", &c.LogLevel)
	loadEnvString("REDIS_ADDR", &c.Store.Addr)
	loadEnvString("REDIS_PASSWORD", &c.Store.Password)
	loadEnvString("REDIS_PREFIX", &c.Store.Prefix)
	loadEnvString("TAG_PREPARATION_SUCCESS", &c.Tags.PreparationSuccess)
	loadEnvString("TAG_PREPARATION_FAILED", &c.Tags.PreparationFailed)
	loadEnvString("TAG_ROLLOUT_SUCCESS", &c.Tags.RolloutSuccess)
	loadEnvString("TAG_ROLLOUT_FAILED", &c.Tags.RolloutFailed)

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"REDIS_DB", &c.Store.DB, -1, MaxRedisDB,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"HISTORY_LIMIT", &c.Store.HistoryLimit, 0, MaxHistoryLimit,
	); err != nil {
		return err
	}

	for key, dst := range map[string]*time.Duration{
		"POLL_INTERVAL":    &c.PollInterval,
		"AUTO_DELAY":       &c.AutoDelay,
		"REQUEST_TIMEOUT":  &c.RequestTimeout,
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
	} {
		if err := loadEnvDuration(key, dst); err != nil {
			return err
		}
	}

	for key, dst := range map[string]*bool{
		"STRICT_NAVIGATION": &c.StrictNavigation,
		"UPLOAD_POLLING":    &c.UploadPolling,
		"ENABLE_AUTOMATION": &c.EnableAutomation,
	} {
		if err := loadEnvBool(key, dst); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if strings.TrimSpace(c.Environment) == "" {
		return ErrEnvironmentEmpty
	}

	if c.PollInterval < MinPollInterval || c.PollInterval > MaxPollInterval {
		return fmt.Errorf("%w: %s", ErrInvalidPollInterval, c.PollInterval)
	}

	if c.AutoDelay < 0 || c.AutoDelay > MaxAutoDelay {
		return fmt.Errorf("%w: %s", ErrInvalidAutoDelay, c.AutoDelay)
	}

	if c.RequestTimeout < 0 {
		return ErrInvalidTimeout
	}

	if c.Store.HistoryLimit <= 0 {
		return ErrInvalidHistoryLimit
	}

	return validateTags(c.Tags)
}

// StoreEnabled reports whether a Redis address has been configured
func (c *Config) StoreEnabled() bool {
	return c.Store.Addr != ""
}

func validateTags(t api.TerminalTags) error {
	tags := []string{
		t.PreparationSuccess, t.PreparationFailed,
		t.RolloutSuccess, t.RolloutFailed,
	}
	seen := map[string]bool{}
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			return ErrInvalidTerminalTags
		}
		seen[tag] = true
	}
	return nil
}

func loadEnvString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]. Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

// loadEnvDuration accepts Go duration strings ("1.5s") or a bare number of
// milliseconds
func loadEnvDuration(key string, dst *time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidDuration, key, s)
	}
	*dst = d
	return nil
}

func loadEnvBool(key string, dst *bool) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidBool, key, s)
	}
	*dst = v
	return nil
}
