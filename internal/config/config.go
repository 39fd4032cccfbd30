package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	MaxRetries     int    `toml:"max_retries"`
	PromptBudget   int    `toml:"prompt_budget"`
}

type DatasetConfig struct {
	RatingsPath string `toml:"ratings_path"`
	ItemsPath   string `toml:"items_path"`
	Separator   string `toml:"separator"`
	HasHeader   bool   `toml:"has_header"`
}

type IndexConfig struct {
	BM25K1       float64 `toml:"bm25_k1"`
	BM25B        float64 `toml:"bm25_b"`
	EmbeddingDim int     `toml:"embedding_dim"`
}

type EvalConfig struct {
	Cutoffs            []int   `toml:"cutoffs"`
	RelevanceThreshold float64 `toml:"relevance_threshold"`
	TestRatio          float64 `toml:"test_ratio"`
	Seed               int64   `toml:"seed"`
	ReportDir          string  `toml:"report_dir"`
	UserTimeoutMs      int     `toml:"user_timeout_ms"`
}

type ServerConfig struct {
	Addr         string `toml:"addr"`
	CacheTTLSecs int    `toml:"cache_ttl_secs"`
}

type StoreConfig struct {
	EmbeddingCacheDir string `toml:"embedding_cache_dir"`
	RunDBPath         string `toml:"run_db_path"`
}

type Config struct {
	LLM     LLMConfig     `toml:"llm"`
	Dataset DatasetConfig `toml:"dataset"`
	Index   IndexConfig   `toml:"index"`
	Eval    EvalConfig    `toml:"eval"`
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:     "openai",
			MaxRetries:   3,
			PromptBudget: 4000,
		},
		Dataset: DatasetConfig{
			Separator: ",",
			HasHeader: true,
		},
		Index: IndexConfig{
			BM25K1:       1.2,
			BM25B:        0.75,
			EmbeddingDim: 1536,
		},
		Eval: EvalConfig{
			Cutoffs:            []int{5, 10, 20},
			RelevanceThreshold: 4.0,
			TestRatio:          0.2,
			Seed:               42,
			ReportDir:          "reports",
			UserTimeoutMs:      30000,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			CacheTTLSecs: 300,
		},
		Store: StoreConfig{
			EmbeddingCacheDir: "data/embcache",
			RunDBPath:         "data/runs.db",
		},
	}
}

// Load reads a TOML config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides config fields from environment variables. Secrets
// usually arrive this way rather than through the file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		c.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("RECLAB_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("RECLAB_RATINGS"); v != "" {
		c.Dataset.RatingsPath = v
	}
	if v := os.Getenv("RECLAB_ITEMS"); v != "" {
		c.Dataset.ItemsPath = v
	}
}
