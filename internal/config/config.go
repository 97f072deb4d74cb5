// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LexiClass Contributors

// Package config loads LexiClass settings. Sources are layered as flag
// defaults, then the YAML file, then flags set on the command line, then
// the DATABASE_URL and LEXICLASS_TOKEN_SECRET environment variables.
package config

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/lexiclass/lexiclass/internal/auth"
	"github.com/lexiclass/lexiclass/internal/logging"
	"github.com/lexiclass/lexiclass/internal/xdg"
)

// Environment variables that override file and flag values.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvTokenSecret = "LEXICLASS_TOKEN_SECRET"
)

// CodeInvalid marks configuration that failed to load or validate.
const CodeInvalid = "CONFIG_INVALID"

// Defaults.
const (
	DefaultHTTPAddr       = ":8080"
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultMaxConns       = 10
	DefaultConnectRetries = 5
	DefaultLogFormat      = "json"
	DefaultLogLevel       = "info"
)

// DefaultAllowedOrigins is the CORS allow-list used when none is configured.
var DefaultAllowedOrigins = []string{"http://localhost:3000"}

// HTTP configures the API listener.
type HTTP struct {
	Addr           string   `koanf:"addr"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Database configures the PostgreSQL pool.
type Database struct {
	URL            string `koanf:"url"`
	MaxConns       int32  `koanf:"max_conns"`
	ConnectRetries uint64 `koanf:"connect_retries"`
}

// Auth configures hashing and session tokens.
type Auth struct {
	TokenSecret string        `koanf:"token_secret"`
	TokenTTL    time.Duration `koanf:"token_ttl"`
	BcryptCost  int           `koanf:"bcrypt_cost"`
}

// Log configures the process logger.
type Log struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Config is the complete LexiClass configuration.
type Config struct {
	HTTP        HTTP     `koanf:"http"`
	MetricsAddr string   `koanf:"metrics_addr"`
	Database    Database `koanf:"database"`
	Auth        Auth     `koanf:"auth"`
	Log         Log      `koanf:"log"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"http-addr":          "http.addr",
	"allowed-origins":    "http.allowed_origins",
	"metrics-addr":       "metrics_addr",
	"database-url":       "database.url",
	"db-max-conns":       "database.max_conns",
	"db-connect-retries": "database.connect_retries",
	"token-ttl":          "auth.token_ttl",
	"bcrypt-cost":        "auth.bcrypt_cost",
	"log-format":         "log.format",
	"log-level":          "log.level",
}

// RegisterFlags adds the config flags with their defaults to fs. The token
// secret has no flag so that it never appears in a process listing.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", DefaultHTTPAddr, "API listen address")
	fs.StringSlice("allowed-origins", DefaultAllowedOrigins, "CORS allowed origins")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health listen address (empty disables)")
	fs.String("database-url", "", "PostgreSQL connection URL (env "+EnvDatabaseURL+")")
	fs.Int32("db-max-conns", DefaultMaxConns, "maximum pooled database connections")
	fs.Uint64("db-connect-retries", DefaultConnectRetries, "database connection attempts before giving up")
	fs.Duration("token-ttl", auth.DefaultTokenTTL, "session token lifetime")
	fs.Int("bcrypt-cost", auth.DefaultBcryptCost, "bcrypt work factor for new password hashes")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
}

// LoadOptions says where Load reads from.
type LoadOptions struct {
	// Path is an explicit config file. A missing explicit file is an error;
	// when Path is empty the XDG default is used if it exists.
	Path string
	// EnvFile is an optional dotenv file loaded into the environment first.
	EnvFile string
	// Flags carries defaults and command-line overrides. It may be nil.
	Flags *pflag.FlagSet
}

// Load builds a Config from the layered sources. It does not validate.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code(CodeInvalid).With("env_file", opts.EnvFile).Wrap(err)
		}
	}

	k := koanf.New(".")

	path, explicit, err := resolvePath(opts.Path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, oops.Code(CodeInvalid).With("path", path).Wrapf(err, "read config file")
			}
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeInvalid).Wrapf(err, "read flags")
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "decode config")
	}

	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv(EnvTokenSecret); v != "" {
		cfg.Auth.TokenSecret = v
	}
	return cfg, nil
}

func resolvePath(path string) (string, bool, error) {
	if path != "" {
		return path, true, nil
	}
	def, err := xdg.ConfigFile()
	if err != nil {
		// No home directory: run on flags and environment alone.
		return "", false, nil //nolint:nilerr // missing default file is allowed
	}
	return def, false, nil
}

// ValidateStorage checks the settings every command needs: the database
// and logging.
func (c *Config) ValidateStorage() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return invalid("database.url", "database url is required (set %s)", EnvDatabaseURL)
	}
	if c.Database.MaxConns < 1 {
		return invalid("database.max_conns", "max_conns must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "unknown log level %q", c.Log.Level)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return invalid("auth.bcrypt_cost", "bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// Validate checks everything the API server needs.
func (c *Config) Validate() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	if err := validateAddr("http.addr", c.HTTP.Addr); err != nil {
		return err
	}
	if c.MetricsAddr != "" {
		if err := validateAddr("metrics_addr", c.MetricsAddr); err != nil {
			return err
		}
	}
	if len(c.Auth.TokenSecret) < auth.MinTokenSecretBytes {
		return invalid("auth.token_secret", "token secret must be at least %d bytes (set %s)",
			auth.MinTokenSecretBytes, EnvTokenSecret)
	}
	if c.Auth.TokenTTL <= 0 {
		return invalid("auth.token_ttl", "token ttl must be positive")
	}
	return nil
}

func validateAddr(field, addr string) error {
	if addr == "" {
		return invalid(field, "address is required")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return invalid(field, "address %q must be host:port", addr)
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return oops.Code(CodeInvalid).With("field", field).Errorf(format, args...)
}
