package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SecretEnvVar names the environment variable holding the session signing secret
const SecretEnvVar = "WARDEN_SECRET_KEY"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the complete warden configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Session      SessionConfig      `yaml:"session"`
	Logging      LoggingConfig      `yaml:"logging"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	// TrustedProxies lists CIDRs whose X-Forwarded-For header is believed
	TrustedProxies []string     `yaml:"trusted_proxies" validate:"dive,cidr|ip"`
	Users          []UserConfig `yaml:"users" validate:"required,min=1,dive"`
}

type ServerConfig struct {
	ListenAddress string        `yaml:"listen_address" validate:"required"`
	ReadTimeout   time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout  time.Duration `yaml:"write_timeout,omitempty"`
	TLS           TLSConfig     `yaml:"tls,omitempty"`
}

type TLSConfig struct {
	CertFile string `yaml:"cert_file" validate:"required_with=KeyFile"`
	KeyFile  string `yaml:"key_file" validate:"required_with=CertFile"`
}

// Enabled reports whether the server should terminate TLS itself
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

type SessionConfig struct {
	CookieName string        `yaml:"cookie_name" validate:"required"`
	TTL        string        `yaml:"ttl"`
	TTLParsed  time.Duration `yaml:"-" validate:"gt=0"`
	SecretFile string        `yaml:"secret_file,omitempty"`
	// Secret is resolved at load time and never read from YAML
	Secret []byte `yaml:"-"`
}

// UserConfig is one demo account. Either Password (hashed at startup) or
// PasswordHash (bcrypt) must be set.
type UserConfig struct {
	Name         string `yaml:"name" validate:"required,max=64"`
	Password     string `yaml:"password,omitempty" validate:"required_without=PasswordHash"`
	PasswordHash string `yaml:"password_hash,omitempty" validate:"required_without=Password"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"` // json or text
	Output string `yaml:"output" validate:"oneof=stdout stderr file"`
	File   string `yaml:"file,omitempty" validate:"required_if=Output file"`
}

type RateLimitingConfig struct {
	Login LoginLimitConfig `yaml:"login"`
}

type LoginLimitConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" validate:"gt=0"`
	WindowDuration string        `yaml:"window_duration"`
	Window         time.Duration `yaml:"-" validate:"gt=0"`
	MaxKeys        int           `yaml:"max_keys" validate:"gt=0"`
}

// Default returns the configuration used when no file is supplied
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress: "127.0.0.1:5000",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
		},
		Session: SessionConfig{
			CookieName: "warden_session",
			TTL:        "12h",
			TTLParsed:  12 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		RateLimiting: RateLimitingConfig{
			Login: LoginLimitConfig{
				MaxAttempts:    5,
				WindowDuration: "60s",
				Window:         60 * time.Second,
				MaxKeys:        10000,
			},
		},
		Users: []UserConfig{
			{Name: "admin", Password: "admin123"},
			{Name: "user1", Password: "password123"},
			{Name: "test", Password: "test"},
		},
	}
}

// Load builds the configuration from an optional YAML file layered over the
// defaults, then resolves the session secret.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandPath(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}

	// Expand paths in config
	if cfg.Session.SecretFile != "" {
		cfg.Session.SecretFile = ExpandPath(cfg.Session.SecretFile)
	}
	if cfg.Logging.File != "" {
		cfg.Logging.File = ExpandPath(cfg.Logging.File)
	}

	secret, err := ResolveSecret(cfg.Session.SecretFile)
	if err != nil {
		return nil, err
	}
	cfg.Session.Secret = secret

	return cfg, nil
}

func (c *Config) parseDurations() error {
	if c.Session.TTL != "" {
		ttl, err := time.ParseDuration(c.Session.TTL)
		if err != nil {
			return fmt.Errorf("invalid session ttl: %w", err)
		}
		c.Session.TTLParsed = ttl
	}

	if c.RateLimiting.Login.WindowDuration != "" {
		window, err := time.ParseDuration(c.RateLimiting.Login.WindowDuration)
		if err != nil {
			return fmt.Errorf("invalid rate_limiting.login.window_duration: %w", err)
		}
		c.RateLimiting.Login.Window = window
	}

	return nil
}

// ResolveSecret returns the signing secret from the environment (a .env file
// in the working directory is honoured), then from secretFile. A nil secret
// with a nil error means neither source is configured.
func ResolveSecret(secretFile string) ([]byte, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	if v := os.Getenv(SecretEnvVar); v != "" {
		if len(v) < 32 {
			return nil, fmt.Errorf("%s must be at least 32 bytes", SecretEnvVar)
		}
		return []byte(v), nil
	}

	if secretFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(secretFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read session secret: %w", err)
	}
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}
	return data, nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	seen := make(map[string]bool, len(c.Users))
	for _, u := range c.Users {
		if seen[u.Name] {
			return fmt.Errorf("duplicate user %q", u.Name)
		}
		seen[u.Name] = true
	}

	return nil
}

func formatValidationError(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("invalid config: %w", err)
	}

	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
