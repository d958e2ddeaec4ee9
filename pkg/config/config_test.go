package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.Equal(t, EnvDevelopment, cfg.Env)
	require.Equal(t, "/api/v1", cfg.APIPrefix)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
	require.Equal(t, 10, cfg.RateLimit.AnonymousLimit)
	require.Equal(t, 100, cfg.RateLimit.APIKeyLimit)
	require.Equal(t, 5*time.Minute, cfg.Catalog.CacheTTL)
	require.False(t, cfg.SideEffects.RetryEnabled)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("RATE_LIMIT_WINDOW", "not-a-duration")
	v.Set("RATE_LIMIT_ANONYMOUS", 0)
	v.Set("ALLOWED_ORIGINS", " https://data.example.go.id , ,https://admin.example.go.id")

	cfg := fromViper(v)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
	require.Equal(t, 10, cfg.RateLimit.AnonymousLimit)
	require.Equal(t, []string{"https://data.example.go.id", "https://admin.example.go.id"}, cfg.CORS.AllowedOrigins)
}
