package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/contentshield/blockset/internal/compiler"
	"github.com/contentshield/blockset/internal/config"
)

func main() {
	input := flag.String("input", "", "Rule list file to compile (.json, .yaml)")
	output := flag.String("output", "./out", "Directory for the compiled output sections")
	flag.Parse()

	setupLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	applyLoggingConfig(cfg)

	if *input == "" {
		log.Fatal().Msg("Missing -input rule list file")
	}

	rules, err := loadRuleList(*input)
	if err != nil {
		log.Fatal().Err(err).Str("input", *input).Msg("Failed to load rule list")
	}
	log.Info().Int("rules", len(rules)).Str("input", *input).Msg("Loaded rule list")

	client := &fileClient{}
	start := time.Now()
	err = compiler.Compile(rules, client, compiler.Options{
		MaxNFASize:       cfg.Compiler.MaxNFASize,
		SmallDFASize:     cfg.Compiler.SmallDFASize,
		PatternCacheSize: cfg.Compiler.PatternCacheSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Compilation failed")
	}

	if err := client.Flush(*output); err != nil {
		log.Fatal().Err(err).Str("output", *output).Msg("Failed to write compiled output")
	}

	log.Info().
		Dur("elapsed", time.Since(start)).
		Int("actions_bytes", client.manifest.ActionsLength).
		Int("machines_without_conditions", len(client.manifest.FiltersWithoutConditionsBlobs)).
		Int("machines_with_conditions", len(client.manifest.FiltersWithConditionsBlobs)).
		Int("conditioned_machines", len(client.manifest.ConditionedFiltersBlobs)).
		Str("output", *output).
		Msg("Compiled rule list")
}

func setupLogger() {
	zerolog.TimeFieldFormat = time.RFC3339

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func applyLoggingConfig(cfg *config.Config) {
	switch cfg.Logging.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if cfg.Logging.Format == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
