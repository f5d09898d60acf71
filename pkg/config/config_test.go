package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, time.Hour, cfg.Exports.SignedURLTTL)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.CacheTTL)
	assert.Zero(t, cfg.Catalog.ReconcileInterval)
	assert.Equal(t, "elective-portal:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 50, cfg.Mail.BatchSize)
	assert.Equal(t, 3, cfg.RateLimit.SelectionBurst)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("MAIL_WORKERS", 0)
	v.Set("CATALOG_CACHE_TTL", "not-a-duration")
	v.Set("CATALOG_RECONCILE_INTERVAL", "30m")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := fromViper(v)
	assert.Equal(t, 2, cfg.Mail.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.Catalog.ReconcileInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
