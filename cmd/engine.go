package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/candidate-matcher/internal/ai"
	"github.com/spigell/candidate-matcher/internal/ai/gemini"
	"github.com/spigell/candidate-matcher/internal/ai/openai"
	"github.com/spigell/candidate-matcher/internal/enrichment"
	"github.com/spigell/candidate-matcher/internal/logger"
	"github.com/spigell/candidate-matcher/internal/matching"
	"github.com/spigell/candidate-matcher/internal/records"
	"github.com/spigell/candidate-matcher/internal/secrets"
	"github.com/spigell/candidate-matcher/internal/store/memory"
	"github.com/spigell/candidate-matcher/internal/store/postgres"
	"github.com/spigell/candidate-matcher/internal/store/sqlite"
)

const (
	candidatesTable = "enriched_candidates"
	jobsTable       = "enriched_jobs"
)

// engine holds everything a command needs to match candidates.
type engine struct {
	repo       *records.Repository
	candidates *enrichment.CandidateCache
	jobs       *enrichment.JobCache
	service    *matching.Service

	closers []func()
}

func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// logStats reports the cache counters of this process.
func (e *engine) logStats(log *zap.Logger) {
	for kind, stats := range map[string]enrichment.Stats{
		records.KindCandidate: e.candidates.Stats(),
		records.KindJob:       e.jobs.Stats(),
	} {
		log.Info("enrichment cache stats",
			zap.String(logger.FieldRecordKind, kind),
			zap.Int64("hits", stats.Hits),
			zap.Int64("refreshes", stats.Refreshes),
			zap.Int64("failures", stats.Failures),
		)
	}
}

func newEngine(ctx context.Context, config *Config, log *zap.Logger) (*engine, error) {
	e := &engine{}

	repo, err := records.LoadRepository(config.Data.CandidatesFile, config.Data.JobsFile, log.Named("records"))
	if err != nil {
		return nil, err
	}
	e.repo = repo

	extractor, embedder, err := newAI(ctx, config, log)
	if err != nil {
		return nil, err
	}

	candidateStore, jobStore, err := e.openStores(ctx, config.Cache, log)
	if err != nil {
		e.Close()
		return nil, err
	}

	cacheLog := log.Named("enrichment")
	e.candidates = enrichment.NewCandidateCache(candidateStore, extractor, embedder, cacheLog)
	e.jobs = enrichment.NewJobCache(jobStore, extractor, embedder, cacheLog)

	e.service, err = matching.NewService(matchingConfig(config.Matching), repo, e.candidates, e.jobs, log)
	if err != nil {
		e.Close()
		return nil, err
	}

	return e, nil
}

func matchingConfig(cfg *MatchingConfig) matching.Config {
	out := matching.Config{
		KeywordThreshold: cfg.KeywordThreshold,
		DefaultTopK:      cfg.DefaultTopK,
		MaxTopK:          cfg.MaxTopK,
		MaxConcurrency:   cfg.MaxConcurrency,
		ExperienceFilter: true,
	}
	if cfg.Weights != nil {
		out.KeywordWeight = cfg.Weights.Keyword
		out.VectorWeight = cfg.Weights.Vector
	}
	if cfg.Filters != nil {
		out.ExperienceFilter = cfg.Filters.Experience
	}
	return out
}

func newAI(ctx context.Context, config *Config, log *zap.Logger) (ai.FeatureExtractor, ai.Embedder, error) {
	if provider := strings.ToLower(strings.TrimSpace(config.AI.Provider)); provider != "" && provider != gemini.ProviderName {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", config.AI.Provider)
	}

	gcfg := config.AI.Gemini
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gcfg.APIKey,
		File:  gcfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (or set ai.gemini.api-key-file / GEMINI_API_KEY_FILE)", err)
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, nil, err
	}

	genLogger := logger.WithFields(log.Named("extractor"), zap.Int("ai_retry_attempts", gcfg.MaxRetries))
	generator := gemini.NewGenerator(client.Models, gcfg.Model, gemini.CallOptions{
		MaxRetries: gcfg.MaxRetries,
		Timeout:    gcfg.Timeout,
	}, logger.WithCommonFields(genLogger, gemini.ProviderName, gcfg.Model))
	extractor := gemini.NewExtractor(generator, genLogger, gcfg.MaxLogLength)

	ecfg := config.Embedding
	embedLogger := logger.WithCommonFields(log.Named("embedder"), ecfg.Provider, ecfg.Model)

	switch strings.ToLower(strings.TrimSpace(ecfg.Provider)) {
	case "", gemini.ProviderName:
		embedder := gemini.NewEmbedder(client.Models, ecfg.Model, ecfg.Dimension, gemini.CallOptions{
			MaxRetries: ecfg.MaxRetries,
			Timeout:    ecfg.Timeout,
		}, embedLogger)
		return extractor, embedder, nil
	case openai.ProviderName:
		ocfg := ecfg.OpenAI
		if ocfg == nil {
			ocfg = &OpenAIConfig{}
		}
		key, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: ocfg.APIKey,
			File:  ocfg.APIKeyFile,
			Env:   "OPENAI_API_KEY",
		})
		if err != nil {
			// Self-hosted servers such as Ollama take no key.
			embedLogger.Warn("embedding without api key", zap.Error(err))
		}
		embedder, err := openai.NewClient(openai.Config{
			BaseURL:      ocfg.BaseURL,
			APIKey:       key,
			Model:        ecfg.Model,
			Dimension:    ecfg.Dimension,
			Timeout:      ecfg.Timeout,
			MaxRetries:   ecfg.MaxRetries,
			LegacyPrompt: ocfg.LegacyPrompt,
		}, embedLogger)
		if err != nil {
			return nil, nil, err
		}
		return extractor, embedder, nil
	default:
		return nil, nil, fmt.Errorf("unsupported embedding provider: %s", ecfg.Provider)
	}
}

func (e *engine) openStores(ctx context.Context, cfg *CacheConfig, log *zap.Logger) (enrichment.Store[enrichment.EnrichedCandidate], enrichment.Store[enrichment.EnrichedJob], error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	log.Info("opening enrichment store", zap.String("backend", backend))

	switch backend {
	case "", "memory":
		candidates, err := memory.New[enrichment.EnrichedCandidate](cfg.Size)
		if err != nil {
			return nil, nil, err
		}
		jobs, err := memory.New[enrichment.EnrichedJob](cfg.Size)
		if err != nil {
			return nil, nil, err
		}
		return candidates, jobs, nil

	case "sqlite":
		if cfg.SQLite == nil || cfg.SQLite.Path == "" {
			return nil, nil, fmt.Errorf("cache.sqlite.path is required for the sqlite backend")
		}
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		e.closers = append(e.closers, func() { db.Close() })

		candidates, err := sqlite.New[enrichment.EnrichedCandidate](ctx, db, candidatesTable)
		if err != nil {
			return nil, nil, err
		}
		jobs, err := sqlite.New[enrichment.EnrichedJob](ctx, db, jobsTable)
		if err != nil {
			return nil, nil, err
		}
		return candidates, jobs, nil

	case "postgres":
		if cfg.Postgres == nil || cfg.Postgres.URL == "" {
			return nil, nil, fmt.Errorf("cache.postgres.url (or DATABASE_URL) is required for the postgres backend")
		}
		pool, err := postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		e.closers = append(e.closers, pool.Close)

		candidates, err := postgres.New[enrichment.EnrichedCandidate](ctx, pool, candidatesTable)
		if err != nil {
			return nil, nil, err
		}
		jobs, err := postgres.New[enrichment.EnrichedJob](ctx, pool, jobsTable)
		if err != nil {
			return nil, nil, err
		}
		return candidates, jobs, nil

	default:
		return nil, nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
