package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "candidate-matcher"
)

type Config struct {
	Server    *ServerConfig    `mapstructure:"server"`
	Data      *DataConfig      `mapstructure:"data"`
	Matching  *MatchingConfig  `mapstructure:"matching"`
	AI        *AIConfig        `mapstructure:"ai"`
	Embedding *EmbeddingConfig `mapstructure:"embedding"`
	Cache     *CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	CORSOrigins  []string      `mapstructure:"cors-origins"`
}

type DataConfig struct {
	CandidatesFile string `mapstructure:"candidates-file"`
	JobsFile       string `mapstructure:"jobs-file"`
}

type MatchingConfig struct {
	KeywordThreshold float64        `mapstructure:"keyword-threshold"`
	Weights          *WeightsConfig `mapstructure:"weights"`
	DefaultTopK      int            `mapstructure:"default-top-k"`
	MaxTopK          int            `mapstructure:"max-top-k"`
	MaxConcurrency   int            `mapstructure:"max-concurrency"`
	Filters          *FiltersConfig `mapstructure:"filters"`
}

type WeightsConfig struct {
	Keyword float64 `mapstructure:"keyword"`
	Vector  float64 `mapstructure:"vector"`
}

type FiltersConfig struct {
	Experience bool `mapstructure:"experience"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	MaxRetries   int           `mapstructure:"max-retries"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Dimension  int           `mapstructure:"dimension"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max-retries"`
	OpenAI     *OpenAIConfig `mapstructure:"openai"`
}

type OpenAIConfig struct {
	BaseURL      string `mapstructure:"base-url"`
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	LegacyPrompt bool   `mapstructure:"legacy-prompt"`
}

type CacheConfig struct {
	Backend  string          `mapstructure:"backend"`
	Size     int             `mapstructure:"size"`
	SQLite   *SQLiteConfig   `mapstructure:"sqlite"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "candidate-matcher ranks candidates for job postings with keyword filtering and semantic search",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

var envBindings = map[string]string{
	"ai.gemini.api-key":             "GEMINI_API_KEY",
	"ai.gemini.api-key-file":        "GEMINI_API_KEY_FILE",
	"embedding.openai.api-key":      "OPENAI_API_KEY",
	"cache.postgres.url":            "DATABASE_URL",
	"server.address":                "MATCHER_ADDRESS",
	"embedding.openai.base-url":     "OPENAI_BASE_URL",
	"embedding.openai.api-key-file": "OPENAI_API_KEY_FILE",
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is candidate-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("server.address", ":8000")
	viper.SetDefault("server.read-timeout", 60*time.Second)
	viper.SetDefault("server.write-timeout", 300*time.Second)
	viper.SetDefault("server.cors-origins", []string{"*"})

	viper.SetDefault("data.candidates-file", "data/raw_candidates.json")
	viper.SetDefault("data.jobs-file", "data/raw_jobs.json")

	viper.SetDefault("matching.keyword-threshold", 0.6)
	viper.SetDefault("matching.weights.keyword", 0.5)
	viper.SetDefault("matching.weights.vector", 0.5)
	viper.SetDefault("matching.default-top-k", 100)
	viper.SetDefault("matching.max-top-k", 500)
	viper.SetDefault("matching.max-concurrency", 10)
	viper.SetDefault("matching.filters.experience", true)

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.timeout", 60*time.Second)
	viper.SetDefault("ai.gemini.max-log-length", 200)

	viper.SetDefault("embedding.provider", "gemini")
	viper.SetDefault("embedding.dimension", 768)
	viper.SetDefault("embedding.model", "text-embedding-004")
	viper.SetDefault("embedding.timeout", 30*time.Second)
	viper.SetDefault("embedding.max-retries", 3)
	viper.SetDefault("embedding.openai.base-url", "https://api.openai.com/v1")
	viper.SetDefault("embedding.openai.legacy-prompt", false)

	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.size", 0)
	viper.SetDefault("cache.sqlite.path", "data/enrichment.db")
}

func initConfig() {
	// Local development keeps the API keys in .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every key has a default, so the file is optional unless given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
