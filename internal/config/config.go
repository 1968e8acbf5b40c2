// Package config loads the server and CLI configuration from environment
// variables. A .env file in the working directory is read first when present;
// variables already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverFS    = "fs"
	DriverMinIO = "minio"
	DriverS3    = "s3"
)

// Config contains every setting of the process.
type Config struct {
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	HTTP     HTTP       `envPrefix:"HTTP_"`
	DB       DB         `envPrefix:"DB_"`
	Auth     Auth       `envPrefix:"AUTH_"`
	GitHub   GitHub     `envPrefix:"GITHUB_"`
	Storage  Storage    `envPrefix:"STORAGE_"`
}

// HTTP contains listener and page rendering parameters.
type HTTP struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	TemplateDir     string        `env:"TEMPLATE_DIR" envDefault:"web/templates"`
	StaticDir       string        `env:"STATIC_DIR" envDefault:"web/static"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxUploadMB     int64         `env:"MAX_UPLOAD_MB" envDefault:"50"`
}

// DB contains the document store location.
type DB struct {
	Path string `env:"PATH" envDefault:"data/livt.db"`
}

// Auth contains session and password hashing parameters.
type Auth struct {
	JWTSecret    string        `env:"JWT_SECRET,required"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"12"`
}

// GitHub contains OAuth app credentials. Sign-in with GitHub is offered only
// when both the client id and secret are set.
type GitHub struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL" envDefault:"http://localhost:8080/auth/github/callback"`
}

// Enabled reports whether GitHub sign-in is configured.
func (g GitHub) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Storage contains blob store parameters. Dir is used by the fs driver; the
// rest by minio and s3.
type Storage struct {
	Driver    string        `env:"DRIVER" envDefault:"fs"`
	Dir       string        `env:"DIR" envDefault:"data/blobs"`
	Endpoint  string        `env:"ENDPOINT"`
	Region    string        `env:"REGION" envDefault:"us-east-1"`
	AccessKey string        `env:"ACCESS_KEY"`
	SecretKey string        `env:"SECRET_KEY"`
	Bucket    string        `env:"BUCKET" envDefault:"livt-programs"`
	UseSSL    bool          `env:"USE_SSL" envDefault:"false"`
	URLExpiry time.Duration `env:"URL_EXPIRY" envDefault:"1h"`
}

// Load reads envFile (if it exists) into the environment and parses Config.
// Pass "" to skip the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the combinations env tags cannot express.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("config: AUTH_JWT_SECRET must be at least 16 characters")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("config: AUTH_BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	if c.HTTP.MaxUploadMB <= 0 {
		return fmt.Errorf("config: HTTP_MAX_UPLOAD_MB must be positive, got %d", c.HTTP.MaxUploadMB)
	}

	switch c.Storage.Driver {
	case DriverFS:
		if c.Storage.Dir == "" {
			return errors.New("config: STORAGE_DIR is required for the fs driver")
		}
	case DriverMinIO, DriverS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("config: STORAGE_BUCKET is required for the %s driver", c.Storage.Driver)
		}
		if c.Storage.Driver == DriverMinIO && c.Storage.Endpoint == "" {
			return errors.New("config: STORAGE_ENDPOINT is required for the minio driver")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q (want fs, minio or s3)", c.Storage.Driver)
	}
	return nil
}
