package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MAX_NFA_SIZE", "")
	t.Setenv("SMALL_DFA_SIZE", "")
	t.Setenv("PATTERN_CACHE_SIZE", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 75000, cfg.Compiler.MaxNFASize)
	assert.Equal(t, 100, cfg.Compiler.SmallDFASize)
	assert.Equal(t, 512, cfg.Compiler.PatternCacheSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MAX_NFA_SIZE", "50000")
	t.Setenv("SMALL_DFA_SIZE", "64")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50000, cfg.Compiler.MaxNFASize)
	assert.Equal(t, 64, cfg.Compiler.SmallDFASize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("nfa size below minimum", func(t *testing.T) {
		t.Setenv("MAX_NFA_SIZE", "50")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MaxNFASize")
	})

	t.Run("unknown log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "verbose")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Level")
	})

	t.Run("non-numeric size", func(t *testing.T) {
		t.Setenv("SMALL_DFA_SIZE", "lots")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidateOrderingConstraint(t *testing.T) {
	cfg := &Config{}
	cfg.Compiler.MaxNFASize = 1000
	cfg.Compiler.SmallDFASize = 1000
	cfg.Compiler.PatternCacheSize = 64
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMALL_DFA_SIZE")

	cfg.Compiler.SmallDFASize = 100
	assert.NoError(t, Validate(cfg))
}
