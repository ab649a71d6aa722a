package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":        "redis://localhost:6379/0",
		"JWT_SECRET":       "test-secret",
		"BACKEND_BASE_URL": "http://backend.local/",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, int64(1800), cfg.TaxBps)
	require.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
	require.Equal(t, 30, cfg.FinalizeRatePerMin)
	require.Equal(t, "http://backend.local", cfg.BackendBaseURL, "trailing slash trimmed")
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["TAX_BPS"] = "500"
	env["CATALOG_CACHE_TTL"] = "1m"
	env["CORS_ALLOWED_ORIGINS"] = "http://a.local, http://b.local"
	env["PORT"] = "9090"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, int64(500), cfg.TaxBps)
	require.Equal(t, time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.CORSAllowedOrigins)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestLoadMissingRequired(t *testing.T) {
	env := baseEnv()
	env["REDIS_URL"] = ""
	_, err := LoadForTests(env)
	require.Error(t, err)

	env = baseEnv()
	env["BACKEND_BASE_URL"] = ""
	_, err = LoadForTests(env)
	require.Error(t, err)
}

func TestLoadTaxBpsOutOfRange(t *testing.T) {
	env := baseEnv()
	env["TAX_BPS"] = "20000"
	_, err := LoadForTests(env)
	require.Error(t, err)
}
