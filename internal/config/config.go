// Package config manages environment variables.
//
// It reads variable from the `.env` file,
// loads them into structured Go types (struct), and
// validates that required values are present so they
// can be reused accross the application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for optional config blocks (e.g. observability).
package config

import (
	"strings"
	"time"

	"github.com/deppfellow/storefront/internal/errs"
	"github.com/go-playground/validator/v10"
	// Side-effect import: triggers godotenv's autoload feature.
	// If a `.env` file exists, it gets loaded into process env
	// before any config is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

/*
	Two families of env vars are read:

	- The well-known deployment names (MONGO_URI, JWT_SECRET, PORT, NODE_ENV, ...)
	  which are mapped through the aliases table below.
	- Namespaced overrides with the STOREFRONT_ prefix. The prefix is trimmed,
	  the rest lowercased and "__" becomes the koanf "." delimiter:
	  STOREFRONT_RATE_LIMIT__MAX_REQUESTS -> rate_limit.max_requests
*/

const envPrefix = "STOREFRONT_"

// DefaultJWTSecret is substituted when JWT_SECRET is missing.
// It is public knowledge, so tokens signed with it are forgeable.
const DefaultJWTSecret = "insecure-default-jwt-secret"

var aliases = map[string]string{
	"NODE_ENV":              "primary.env",
	"PORT":                  "server.port",
	"CORS_ALLOWED_ORIGINS":  "server.cors_allowed_origins",
	"MONGO_URI":             "database.uri",
	"MONGO_DB":              "database.name",
	"REDIS_ADDR":            "redis.address",
	"JWT_SECRET":            "auth.jwt_secret",
	"UPLOAD_DIR":            "upload.dir",
	"PUBLIC_DIR":            "server.public_dir",
	"NEW_RELIC_LICENSE_KEY": "observability.new_relic.license_key",
	"LOG_LEVEL":             "observability.logging.level",
}

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at runtime.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis"`
	Auth          AuthConfig           `koanf:"auth"`
	Upload        UploadConfig         `koanf:"upload" validate:"required"`
	RateLimit     RateLimitConfig      `koanf:"rate_limit" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// IsProduction reports whether NODE_ENV is "production".
func (p Primary) IsProduction() bool {
	return p.Env == "production"
}

// ServerConfig groups settings for the HTTP server runtime.
//
// Timeouts are seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"min=1"`
	ShutdownTimeout    int      `koanf:"shutdown_timeout" validate:"min=1"`
	BodyLimit          string   `koanf:"body_limit" validate:"required"`
	PublicDir          string   `koanf:"public_dir" validate:"required"`
	TrustProxy         bool     `koanf:"trust_proxy"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required,min=1,dive,url"`
	CORSAllowedHeaders []string `koanf:"cors_allowed_headers"`
	CORSMaxAge         int      `koanf:"cors_max_age"`
}

// DatabaseConfig contains MongoDB connection parameters and pool tuning.
type DatabaseConfig struct {
	URI            string        `koanf:"uri" validate:"required"`
	Name           string        `koanf:"name" validate:"required"`
	MaxPoolSize    uint64        `koanf:"max_pool_size"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"min=1s"`
	ConnectRetries uint64        `koanf:"connect_retries" validate:"min=1"`
}

// RedisConfig contains Redis connection details.
// Address is "host:port"; empty disables Redis entirely.
type RedisConfig struct {
	Address string `koanf:"address"`
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// AuthConfig stores authentication-related secrets.
//
// JWTSecret falls back to DefaultJWTSecret with a warning when unset.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
}

// UploadConfig controls where uploaded files go and how they are served.
type UploadConfig struct {
	// Dir is the filesystem directory files are written to.
	Dir string `koanf:"dir" validate:"required"`

	// PublicPath is the URL prefix files are served under (and prefix of
	// the relative paths returned to clients).
	PublicPath string `koanf:"public_path" validate:"required,startswith=/"`

	// FieldName is the multipart form field carrying the files.
	FieldName string `koanf:"field_name" validate:"required"`

	// MaxFiles caps the number of files in a single request.
	MaxFiles int `koanf:"max_files" validate:"min=1"`
}

// RateLimitConfig controls the per-client request cap.
type RateLimitConfig struct {
	Window      time.Duration `koanf:"window" validate:"min=1s"`
	MaxRequests int           `koanf:"max_requests" validate:"min=1"`

	// Store selects the counter backend: "memory" or "redis".
	Store string `koanf:"store" validate:"oneof=memory redis"`
}

// Defaults returns the configuration used before env vars are applied.
func Defaults() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:            "5000",
			ReadTimeout:     30,
			WriteTimeout:    60,
			IdleTimeout:     120,
			ShutdownTimeout: 10,
			BodyLimit:       "50M",
			PublicDir:       "public",
			CORSMaxAge:      600,
		},
		Database: DatabaseConfig{
			Name:           "storefront",
			MaxPoolSize:    50,
			ConnectTimeout: 10 * time.Second,
			ConnectRetries: 5,
		},
		Upload: UploadConfig{
			Dir:        "uploads",
			PublicPath: "/uploads",
			FieldName:  "image",
			MaxFiles:   5,
		},
		RateLimit: RateLimitConfig{
			Window:      15 * time.Minute,
			MaxRequests: 100,
			Store:       "memory",
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// Lists are applied after unmarshalling so env values replace them
// instead of being merged element by element.
var (
	defaultCORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	defaultCORSHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
)

// envKey maps a raw environment variable name to a koanf key.
// An empty result makes koanf skip the variable.
func envKey(s string) string {
	if key, ok := aliases[s]; ok {
		return key
	}
	if strings.HasPrefix(s, envPrefix) {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}
	return ""
}

// envValue maps a variable to its koanf key and splits comma separated lists.
// Empty variables are skipped so they fall back to the defaults.
func envValue(name, value string) (string, interface{}) {
	key := envKey(name)
	if key == "" || value == "" {
		return "", nil
	}
	if strings.HasSuffix(key, "_origins") || strings.HasSuffix(key, "_headers") || strings.HasSuffix(key, ".checks") {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
	return key, value
}

// LoadConfig loads configuration from environment variables, unmarshals it
// on top of Defaults, validates it and applies the observability defaults.
//
// Missing or invalid required values come back as a KindConfiguration
// *errs.HTTPError; the caller decides to exit. A missing JWT secret is not
// fatal: it is replaced with DefaultJWTSecret and a warning is logged
// (at error level in production).
func LoadConfig(logger *zerolog.Logger) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, errs.NewConfigurationError("could not load env variables", err)
	}

	mainConfig := Defaults()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, errs.NewConfigurationError("could not unmarshal config", err)
	}

	if len(mainConfig.Server.CORSAllowedOrigins) == 0 {
		mainConfig.Server.CORSAllowedOrigins = defaultCORSOrigins
	}
	if len(mainConfig.Server.CORSAllowedHeaders) == 0 {
		mainConfig.Server.CORSAllowedHeaders = defaultCORSHeaders
	}

	// Checked before the struct validation so the message names the variable
	// operators actually set.
	if mainConfig.Database.URI == "" {
		return nil, errs.NewConfigurationError("MONGO_URI is required", nil)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, errs.NewConfigurationError("config validation failed: "+err.Error(), err)
	}

	if mainConfig.Auth.JWTSecret == "" {
		mainConfig.Auth.JWTSecret = DefaultJWTSecret

		event := logger.Warn()
		if mainConfig.Primary.IsProduction() {
			event = logger.Error()
		}
		event.Str("env", mainConfig.Primary.Env).
			Msg("JWT_SECRET is not set, falling back to an insecure default secret")
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment are forced so telemetry stays consistent.
	mainConfig.Observability.ServiceName = "storefront"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, errs.NewConfigurationError("invalid observability config", err)
	}

	return mainConfig, nil
}
