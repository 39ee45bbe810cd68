package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/candidate-matcher/internal/logger"
)

// bootstrap builds the process logger and reads the config. It exits the
// process on failure.
func bootstrap() (*zap.Logger, *Config) {
	logger, err := logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the candidate-matcher", zap.String("version", version))

	// Keys are redacted before the dump.
	redacted := *config
	if config.AI != nil && config.AI.Gemini != nil {
		g := *config.AI.Gemini
		g.APIKey = redact(g.APIKey)
		redacted.AI = &AIConfig{Provider: config.AI.Provider, Gemini: &g}
	}
	if config.Embedding != nil && config.Embedding.OpenAI != nil {
		e := *config.Embedding
		o := *e.OpenAI
		o.APIKey = redact(o.APIKey)
		e.OpenAI = &o
		redacted.Embedding = &e
	}
	if config.Cache != nil && config.Cache.Postgres != nil {
		c := *config.Cache
		c.Postgres = &PostgresConfig{URL: redact(c.Postgres.URL)}
		redacted.Cache = &c
	}
	pretty, _ := json.MarshalIndent(redacted, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
