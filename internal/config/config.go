// Package config loads runtime configuration for the callgrid service.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Config holds all runtime configuration for the callgrid server.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	DataDir          string
	HTTPPort         int
	LogLevel         string
	LogFormat        string // log output format: "text" or "json"
	JWTSecret        string // hex-encoded 32-byte secret for API JWT signing
	APIUser          string // operator account for the control API
	APIPassword      string // operator password; hashed at startup, never stored
	PostgresDSN      string // when set, call records go to PostgreSQL instead of SQLite
	DsdsMode         string // dual-SIM capability: dsds2, dsds3, dsds5-tdm, dsds5-dsda
	RequestQueueSize int    // capacity of the serialized request worker queue
}

// defaults
const (
	defaultDataDir   = "./data"
	defaultHTTPPort  = 8090
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultAPIUser   = "operator"
	defaultDsdsMode  = "dsds2"
	defaultQueueSize = 256
)

// envPrefix is the prefix for all callgrid environment variables.
const envPrefix = "CALLGRID_"

// Load parses configuration from CLI flags and environment variables.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("callgrid", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir, "data directory for the call record database")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP control API listen port")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "hex-encoded 32-byte secret for API JWT signing (auto-generated if empty)")
	fs.StringVar(&cfg.APIUser, "api-user", defaultAPIUser, "operator account name for the control API")
	fs.StringVar(&cfg.APIPassword, "api-password", "", "operator password for the control API (login disabled if empty)")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", "", "PostgreSQL DSN for call records (SQLite in data-dir if empty)")
	fs.StringVar(&cfg.DsdsMode, "dsds-mode", defaultDsdsMode, "dual-SIM capability mode (dsds2, dsds3, dsds5-tdm, dsds5-dsda)")
	fs.IntVar(&cfg.RequestQueueSize, "request-queue-size", defaultQueueSize, "capacity of the serialized request worker queue")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// Apply env var overrides for any flags not explicitly set on the
	// command line. CLI flags take precedence over env vars.
	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was
// not explicitly provided on the command line.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	envMap := map[string]string{
		"data-dir":           envPrefix + "DATA_DIR",
		"http-port":          envPrefix + "HTTP_PORT",
		"log-level":          envPrefix + "LOG_LEVEL",
		"log-format":         envPrefix + "LOG_FORMAT",
		"jwt-secret":         envPrefix + "JWT_SECRET",
		"api-user":           envPrefix + "API_USER",
		"api-password":       envPrefix + "API_PASSWORD",
		"postgres-dsn":       envPrefix + "POSTGRES_DSN",
		"dsds-mode":          envPrefix + "DSDS_MODE",
		"request-queue-size": envPrefix + "REQUEST_QUEUE_SIZE",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "data-dir":
			cfg.DataDir = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "jwt-secret":
			cfg.JWTSecret = val
		case "api-user":
			cfg.APIUser = val
		case "api-password":
			cfg.APIPassword = val
		case "postgres-dsn":
			cfg.PostgresDSN = val
		case "dsds-mode":
			cfg.DsdsMode = val
		case "request-queue-size":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.RequestQueueSize = v
			}
		}
	}
}

// validate checks that the config values are sane.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	validModes := map[string]bool{"dsds2": true, "dsds3": true, "dsds5-tdm": true, "dsds5-dsda": true}
	if !validModes[strings.ToLower(c.DsdsMode)] {
		return fmt.Errorf("dsds-mode must be one of dsds2, dsds3, dsds5-tdm, dsds5-dsda; got %q", c.DsdsMode)
	}
	c.DsdsMode = strings.ToLower(c.DsdsMode)

	if c.RequestQueueSize < 1 {
		return fmt.Errorf("request-queue-size must be positive, got %d", c.RequestQueueSize)
	}
	if c.APIUser == "" {
		return fmt.Errorf("api-user must not be empty")
	}

	return nil
}

// JWTSecretBytes returns the decoded 32-byte JWT signing secret. If no
// secret is configured, it generates a random key and stores the
// hex-encoded value back in the config for the process lifetime.
func (c *Config) JWTSecretBytes() ([]byte, error) {
	if c.JWTSecret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating jwt secret: %w", err)
		}
		c.JWTSecret = hex.EncodeToString(key)
		slog.Warn("no jwt-secret configured, generated ephemeral key (tokens will not survive restart)")
		return key, nil
	}
	key, err := hex.DecodeString(c.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("decoding jwt secret: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("jwt secret must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// APIPasswordHash hashes the configured operator password with bcrypt
// and clears the plaintext. Returns nil when no password is configured.
func (c *Config) APIPasswordHash() ([]byte, error) {
	if c.APIPassword == "" {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.APIPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing api password: %w", err)
	}
	c.APIPassword = ""
	return hash, nil
}

// SlogHandler returns a slog.Handler configured with the appropriate
// format (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log
// level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
