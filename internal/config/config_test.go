package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/deppfellow/storefront/internal/errs"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadConfig reads so the host environment
// cannot leak into a test. Empty values are skipped by the loader.
func clearEnv(t *testing.T) {
	t.Helper()
	for name := range aliases {
		t.Setenv(name, "")
	}
}

func newTestLogger() (*zerolog.Logger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	l := zerolog.New(buf)
	return &l, buf
}

func TestLoadConfigRequiresMongoURI(t *testing.T) {
	clearEnv(t)
	logger, _ := newTestLogger()

	cfg, err := LoadConfig(logger)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, &errs.HTTPError{Kind: errs.KindConfiguration}))
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "s3cret")
	logger, buf := newTestLogger()

	cfg, err := LoadConfig(logger)
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Primary.Env)
	assert.False(t, cfg.Primary.IsProduction())
	assert.Equal(t, "storefront", cfg.Database.Name)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 100, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 5, cfg.Upload.MaxFiles)
	assert.Equal(t, "image", cfg.Upload.FieldName)
	assert.Equal(t, defaultCORSOrigins, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "storefront", cfg.Observability.ServiceName)
	assert.Equal(t, "development", cfg.Observability.Environment)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Observability.NewRelic.Enabled())
	assert.Empty(t, buf.String(), "no warning expected when JWT_SECRET is set")
}

func TestLoadConfigFallsBackToDefaultJWTSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	logger, buf := newTestLogger()

	cfg, err := LoadConfig(logger)
	require.NoError(t, err)

	assert.Equal(t, DefaultJWTSecret, cfg.Auth.JWTSecret)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "JWT_SECRET")
}

func TestLoadConfigJWTFallbackIsAnErrorInProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("NODE_ENV", "production")
	logger, buf := newTestLogger()

	cfg, err := LoadConfig(logger)
	require.NoError(t, err)

	assert.True(t, cfg.Primary.IsProduction())
	assert.True(t, cfg.Observability.IsProduction())
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "8080")
	t.Setenv("MONGO_DB", "shop")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example, https://admin.example")
	t.Setenv("STOREFRONT_RATE_LIMIT__MAX_REQUESTS", "10")
	t.Setenv("STOREFRONT_RATE_LIMIT__WINDOW", "1m")
	t.Setenv("STOREFRONT_UPLOAD__MAX_FILES", "3")
	logger, _ := newTestLogger()

	cfg, err := LoadConfig(logger)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "shop", cfg.Database.Name)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 3, cfg.Upload.MaxFiles)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("STOREFRONT_RATE_LIMIT__STORE", "memcached")
	logger, _ := newTestLogger()

	_, err := LoadConfig(logger)

	require.Error(t, err)
	assert.True(t, errors.Is(err, &errs.HTTPError{Kind: errs.KindConfiguration}))
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MONGO_URI", "database.uri"},
		{"PORT", "server.port"},
		{"STOREFRONT_SERVER__BODY_LIMIT", "server.body_limit"},
		{"STOREFRONT_OBSERVABILITY__LOGGING__LEVEL", "observability.logging.level"},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.in))
		})
	}
}

func TestObservabilityValidate(t *testing.T) {
	c := DefaultObservabilityConfig()
	require.NoError(t, c.Validate())

	c.Logging.Level = "verbose"
	assert.Error(t, c.Validate())

	c = DefaultObservabilityConfig()
	c.Logging.Level = ""
	c.Environment = "production"
	assert.Equal(t, "info", c.GetLogLevel())
	c.Environment = "development"
	assert.Equal(t, "debug", c.GetLogLevel())
}
