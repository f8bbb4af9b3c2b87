package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the rule-list compiler CLI
type Config struct {
	Compiler struct {
		// MaxNFASize bounds the state count of each NFA emitted during
		// pattern partitioning; it is the main peak-memory knob.
		MaxNFASize int `env:"MAX_NFA_SIZE" envDefault:"75000" validate:"min=100"`
		// SmallDFASize is the threshold below which DFAs are merged by the
		// combiner instead of minimized and emitted individually.
		SmallDFASize int `env:"SMALL_DFA_SIZE" envDefault:"100" validate:"min=2"`
		// PatternCacheSize bounds the parsed-pattern memo cache.
		PatternCacheSize int `env:"PATTERN_CACHE_SIZE" envDefault:"512" validate:"min=16"`
	}

	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
		Format string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`
	}
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration using struct tags
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if cfg.Compiler.SmallDFASize >= cfg.Compiler.MaxNFASize {
		return fmt.Errorf("SMALL_DFA_SIZE must be below MAX_NFA_SIZE")
	}

	return nil
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
			case "oneof":
				messages = append(messages, fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param()))
			default:
				messages = append(messages, fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag()))
			}
		}
		return fmt.Errorf("validation errors: %s", strings.Join(messages, "; "))
	}
	return err
}
