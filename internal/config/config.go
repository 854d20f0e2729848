// Package config loads server configuration from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all server configuration.
type Config struct {
	Addr           string        `yaml:"addr" env:"FINDME_ADDR" env-default:":8080" env-description:"HTTP listen address"`
	DBPath         string        `yaml:"db" env:"FINDME_DB" env-default:"findme.sqlite3" env-description:"SQLite database path"`
	JWTSecret      string        `yaml:"jwt_secret" env:"JWT_SECRET" env-description:"token signing secret, generated and stored in the database if empty"`
	TokenTTL       time.Duration `yaml:"token_ttl" env:"FINDME_TOKEN_TTL" env-default:"168h" env-description:"token lifetime"`
	UploadDir      string        `yaml:"upload_dir" env:"FINDME_UPLOAD_DIR" env-default:"uploads" env-description:"directory for uploaded photos"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"FINDME_MAX_UPLOAD" env-default:"5242880" env-description:"maximum photo size in bytes"`
	AdminEmail     string        `yaml:"admin_email" env:"ADMIN_EMAIL" env-default:"admin@example.com" env-description:"email of the provisioned administrator"`
	AdminName      string        `yaml:"admin_name" env:"ADMIN_NAME" env-default:"admin" env-description:"username of the provisioned administrator"`
	LogPath        string        `yaml:"log" env:"FINDME_LOG" env-description:"additional JSON log file"`
	LogLevel       string        `yaml:"log_level" env:"FINDME_LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
}

// Load reads configuration from the YAML file at path, if given, and then
// from the environment. Environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that would prevent the server from starting.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max upload size must be positive, got %d", c.MaxUploadBytes))
	}
	if c.AdminEmail == "" || c.AdminName == "" {
		errs = append(errs, errors.New("admin email and name are required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Usage describes the environment variables understood by Load.
func Usage() string {
	text, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return text
}

// String returns the configuration with the secret masked, for logging.
func (c Config) String() string {
	secret := "<generated>"
	if c.JWTSecret != "" {
		secret = "***"
	}
	return fmt.Sprintf("addr=%s db=%s jwt_secret=%s token_ttl=%s upload_dir=%s max_upload=%d admin=%s <%s> log=%q log_level=%s",
		c.Addr, c.DBPath, secret, c.TokenTTL, c.UploadDir, c.MaxUploadBytes, c.AdminName, c.AdminEmail, c.LogPath, c.LogLevel)
}
