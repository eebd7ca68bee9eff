package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, StoreBackendMemory, cfg.ProfileStore)
	assert.Empty(t, cfg.ProviderURL)
	assert.Equal(t, "admin@company.com", cfg.AdminEmail)
	assert.Equal(t, "Admin123!", cfg.AdminPassword)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PROVIDER_URL", "http://gotrue:9999")
	t.Setenv("PROVIDER_SERVICE_KEY", "service-key")
	t.Setenv("PROFILE_STORE", StoreBackendRedis)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ADMIN_EMAIL", "root@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://gotrue:9999", cfg.ProviderURL)
	assert.Equal(t, "service-key", cfg.ProviderServiceKey)
	assert.Equal(t, StoreBackendRedis, cfg.ProfileStore)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "root@example.com", cfg.AdminEmail)
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "single", input: "http://a.com", want: []string{"http://a.com"}},
		{name: "multiple with spaces", input: "http://a.com, http://b.com", want: []string{"http://a.com", "http://b.com"}},
		{name: "trailing comma", input: "http://a.com,", want: []string{"http://a.com"}},
		{name: "empty", input: "", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOrigins(tt.input))
		})
	}
}
