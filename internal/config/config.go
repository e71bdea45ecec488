// Package config handles the XDG configuration directory and the settings
// loaded from it.
//
// Settings are layered: built-in defaults, then config.yaml, then the .env
// file in the config directory, then TASKER_* environment variables. The
// process environment wins over .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tasker/internal/credstore"
)

const (
	// AppName is the application directory name.
	AppName = "tasker"

	// SettingsFile is the YAML settings filename.
	SettingsFile = "config.yaml"

	// EnvFile holds KEY=value overrides.
	EnvFile = ".env"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TASKER_"

	DefaultBaseURL        = "http://localhost:8000/api"
	DefaultRequestTimeout = 15 * time.Second
	DefaultRefreshTimeout = 30 * time.Second
	DefaultClosedStatusID = 4
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings Settings
}

// Settings are the user-tunable options.
type Settings struct {
	BaseURL          string        `yaml:"base_url" validate:"required,url"`
	RequestTimeout   time.Duration `yaml:"request_timeout" validate:"min=0"`
	RefreshTimeout   time.Duration `yaml:"refresh_timeout" validate:"min=0"`
	ProactiveRefresh bool          `yaml:"proactive_refresh"`
	ClosedStatusID   int           `yaml:"closed_status_id" validate:"min=1"`
	Login            LoginSettings `yaml:"login"`
	Store            StoreSettings `yaml:"store"`
}

// LoginSettings name the fields of the login request body.
type LoginSettings struct {
	IdentifierField string `yaml:"identifier_field" validate:"required"`
	SecretField     string `yaml:"secret_field" validate:"required"`
}

// StoreSettings select the credential store backend.
type StoreSettings struct {
	Backend    string        `yaml:"backend" validate:"omitempty,oneof=file sqlite redis memory"`
	SQLitePath string        `yaml:"sqlite_path"`
	Redis      RedisSettings `yaml:"redis"`
}

type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0"`
	Prefix   string `yaml:"prefix"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:        DefaultBaseURL,
		RequestTimeout: DefaultRequestTimeout,
		RefreshTimeout: DefaultRefreshTimeout,
		ClosedStatusID: DefaultClosedStatusID,
		Login: LoginSettings{
			IdentifierField: "email",
			SecretField:     "password",
		},
		Store: StoreSettings{
			Backend: credstore.BackendFile,
			Redis:   RedisSettings{Prefix: AppName + ":"},
		},
	}
}

// New creates a new Config with the default or specified config directory
// and default settings.
// If configDir is empty, uses XDG_CONFIG_HOME/tasker or $HOME/.config/tasker.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir, Settings: DefaultSettings()}, nil
}

// Load creates a Config and reads its settings.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadSettings(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// EnvPath returns the path to the .env file.
func (c *Config) EnvPath() string {
	return filepath.Join(c.Dir, EnvFile)
}

// TokenPath returns the path to the file credential store.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, credstore.TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// LoadSettings layers config.yaml, .env and the environment (read through
// lookup) over the current settings, then validates the result.
func (c *Config) LoadSettings(lookup func(string) (string, bool)) error {
	data, err := os.ReadFile(c.SettingsPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	default:
		if err := yaml.Unmarshal(data, &c.Settings); err != nil {
			return fmt.Errorf("invalid %s: %w", SettingsFile, err)
		}
	}

	dotenv, err := godotenv.Read(c.EnvPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("invalid %s: %w", EnvFile, err)
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+key]
		return v, ok
	}
	if err := c.Settings.applyEnv(env); err != nil {
		return err
	}

	return c.Settings.Validate()
}

func (s *Settings) applyEnv(env func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := env(key); ok {
			*dst = v
		}
	}
	var err error
	num := func(key string, dst *int) {
		if v, ok := env(key); ok && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, perr)
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := env(key); ok && err == nil {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, perr)
				return
			}
			*dst = d
		}
	}

	str("BASE_URL", &s.BaseURL)
	dur("REQUEST_TIMEOUT", &s.RequestTimeout)
	dur("REFRESH_TIMEOUT", &s.RefreshTimeout)
	if v, ok := env("PROACTIVE_REFRESH"); ok && err == nil {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			return fmt.Errorf("invalid %sPROACTIVE_REFRESH: %w", EnvPrefix, perr)
		}
		s.ProactiveRefresh = b
	}
	num("CLOSED_STATUS_ID", &s.ClosedStatusID)
	str("LOGIN_IDENTIFIER_FIELD", &s.Login.IdentifierField)
	str("LOGIN_SECRET_FIELD", &s.Login.SecretField)
	str("STORE", &s.Store.Backend)
	str("SQLITE_PATH", &s.Store.SQLitePath)
	str("REDIS_ADDR", &s.Store.Redis.Addr)
	str("REDIS_PASSWORD", &s.Store.Redis.Password)
	num("REDIS_DB", &s.Store.Redis.DB)
	str("REDIS_PREFIX", &s.Store.Redis.Prefix)
	return err
}

var validate = validator.New()

// Validate checks the settings.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid setting %s: failed %s", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.Store.Backend == credstore.BackendRedis && s.Store.Redis.Addr == "" {
		return fmt.Errorf("invalid setting store.redis.addr: required for the redis backend")
	}
	return nil
}

// CredentialOptions returns the credential store options for these settings.
func (c *Config) CredentialOptions() credstore.Options {
	return credstore.Options{
		Backend:    c.Settings.Store.Backend,
		Dir:        c.Dir,
		SQLitePath: c.Settings.Store.SQLitePath,
		Redis: credstore.RedisOptions{
			Addr:     c.Settings.Store.Redis.Addr,
			Password: c.Settings.Store.Redis.Password,
			DB:       c.Settings.Store.Redis.DB,
			Prefix:   c.Settings.Store.Redis.Prefix,
		},
	}
}
