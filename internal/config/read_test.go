package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nDmitry/spacetraveling/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_Defaults(t *testing.T) {
	t.Setenv("PRISMIC_API_ENDPOINT", "https://blog.cdn.prismic.io/api/v2")

	cfg, err := config.Read("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "https://blog.cdn.prismic.io/api/v2", cfg.Prismic.Endpoint)
	assert.Equal(t, "posts", cfg.Prismic.DocumentType)
	assert.Equal(t, 5, cfg.Prismic.PageSize)
	assert.Equal(t, 10*time.Second, cfg.Prismic.Timeout)
	assert.Equal(t, 60*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "pt-BR", cfg.Site.Locale)
	assert.Equal(t, 200, cfg.Site.WordsPerMinute)
	assert.Equal(t, 10000, cfg.Session.Limit)
	assert.Empty(t, cfg.Redis.Host)
}

func TestRead_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PRISMIC_API_ENDPOINT", "https://blog.cdn.prismic.io/api/v2")
	t.Setenv("HTTP_SERVER_PORT", "9090")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("SPACETRAVELING_PRISMIC_PAGE_SIZE", "20")
	t.Setenv("SPACETRAVELING_SITE_LOCALE", "en")

	cfg, err := config.Read("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, "cache", cfg.Redis.Host)
	assert.Equal(t, 20, cfg.Prismic.PageSize)
	assert.Equal(t, "en", cfg.Site.Locale)
}

func TestRead_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
prismic:
  endpoint: https://file.cdn.prismic.io/api/v2
  document_type: pos
  page_size: 1
cache:
  ttl: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := config.Read(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.cdn.prismic.io/api/v2", cfg.Prismic.Endpoint)
	assert.Equal(t, "pos", cfg.Prismic.DocumentType)
	assert.Equal(t, 1, cfg.Prismic.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestRead_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		expectedErr string
	}{
		{
			name:        "Missing endpoint",
			env:         map[string]string{},
			expectedErr: "prismic.endpoint is required",
		},
		{
			name:        "Relative endpoint",
			env:         map[string]string{"PRISMIC_API_ENDPOINT": "/api/v2"},
			expectedErr: "must be an absolute URL",
		},
		{
			name: "Page size out of range",
			env: map[string]string{
				"PRISMIC_API_ENDPOINT":             "https://blog.cdn.prismic.io/api/v2",
				"SPACETRAVELING_PRISMIC_PAGE_SIZE": "0",
			},
			expectedErr: "prismic.page_size must be between 1 and 100",
		},
		{
			name: "Unknown timezone",
			env: map[string]string{
				"PRISMIC_API_ENDPOINT":         "https://blog.cdn.prismic.io/api/v2",
				"SPACETRAVELING_SITE_TIMEZONE": "Mars/Olympus",
			},
			expectedErr: "site.timezone",
		},
		{
			name: "Negative session limit",
			env: map[string]string{
				"PRISMIC_API_ENDPOINT":         "https://blog.cdn.prismic.io/api/v2",
				"SPACETRAVELING_SESSION_LIMIT": "-1",
			},
			expectedErr: "session.limit must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PRISMIC_API_ENDPOINT", "")

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Read("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	t.Setenv("PRISMIC_API_ENDPOINT", "https://blog.cdn.prismic.io/api/v2")

	_, err := config.Read(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not read config file")
}
