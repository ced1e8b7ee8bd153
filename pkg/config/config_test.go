package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "general", cfg.Roster.GeneralSubject)
	assert.Equal(t, "ST", cfg.Roster.RegistrationCodePrefix)
	assert.Equal(t, 8, cfg.Grading.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ReportTTL)
	assert.True(t, cfg.Calendar.SyncEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GRADING_CONCURRENCY", "3")
	t.Setenv("GENERAL_SUBJECT", "عام")
	t.Setenv("REPORT_CACHE_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Grading.Concurrency)
	assert.Equal(t, "عام", cfg.Roster.GeneralSubject)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ReportTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
