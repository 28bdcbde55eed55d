package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5.0, cfg.Server.RateLimit)
	assert.Equal(t, "openai", cfg.TextGen.Provider)
	assert.Equal(t, 0.7, cfg.TextGen.Temperature)
	assert.Equal(t, "https://api.discogs.com", cfg.Catalog.BaseURL)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CRATEGUIDE_SERVER_PORT", "9090")
	t.Setenv("CRATEGUIDE_SERVER_RATE_LIMIT", "2.5")
	t.Setenv("CRATEGUIDE_TEXTGEN_API_KEY", "sk-test")
	t.Setenv("CRATEGUIDE_TEXTGEN_MAX_TOKENS", "900")
	t.Setenv("CRATEGUIDE_CATALOG_BASE_URL", "https://catalog.example.com")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, "sk-test", cfg.TextGen.APIKey)
	assert.Equal(t, 900, cfg.TextGen.MaxTokens)
	assert.Equal(t, "https://catalog.example.com", cfg.Catalog.BaseURL)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	// No API key for a hosted provider.
	assert.Error(t, Validate(cfg))

	cfg.TextGen.APIKey = "sk-test"
	assert.NoError(t, Validate(cfg))

	// Ollama needs no key.
	cfg.TextGen.APIKey = ""
	cfg.TextGen.Provider = "ollama"
	assert.NoError(t, Validate(cfg))

	cfg.Server.Port = 0
	assert.Error(t, Validate(cfg))
}
