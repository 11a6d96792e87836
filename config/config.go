package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EmbeddingTEI    = "tei"
	EmbeddingOpenAI = "openai"

	VectorStoreMemory = "memory"
	VectorStoreQdrant = "qdrant"
)

type Config struct {
	AppPort  int    `yaml:"app_port"`
	LogLevel string `yaml:"log_level"`

	Crawl     CrawlConfig     `yaml:"crawl"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	RAG       RAGConfig       `yaml:"rag"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Storage   StorageConfig   `yaml:"storage"`
}

type CrawlConfig struct {
	MaxPages  int           `yaml:"max_pages"`
	Timeout   time.Duration `yaml:"timeout"`
	Workers   int           `yaml:"workers"`
	UserAgent string        `yaml:"user_agent"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	URL      string `yaml:"url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

type RAGConfig struct {
	TopK        int    `yaml:"top_k"`
	VectorStore string `yaml:"vector_store"`
}

type QdrantConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	APIKey           string `yaml:"api_key"`
	CollectionPrefix string `yaml:"collection_prefix"`
}

type StorageConfig struct {
	CrawlDBPath   string `yaml:"crawl_db_path"`
	PersistCrawls bool   `yaml:"persist_crawls"`
}

func Default() *Config {
	return &Config{
		AppPort:  8000,
		LogLevel: "info",
		Crawl: CrawlConfig{
			MaxPages:  50,
			Timeout:   10 * time.Second,
			Workers:   4,
			UserAgent: "Seoscope-Crawler/1.0",
		},
		Embedding: EmbeddingConfig{
			Provider: EmbeddingTEI,
			URL:      "http://localhost:8080",
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-8b-instant",
			Timeout:     60 * time.Second,
			Temperature: 0.4,
			MaxTokens:   2048,
		},
		RAG: RAGConfig{
			TopK:        8,
			VectorStore: VectorStoreMemory,
		},
		Qdrant: QdrantConfig{
			Host:             "localhost",
			Port:             6334,
			CollectionPrefix: "seoscope",
		},
		Storage: StorageConfig{
			CrawlDBPath:   "data/crawls.db",
			PersistCrawls: true,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path,
// a .env file in the working directory and finally the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// Variables already set in the environment win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	intVar := func(dst *int, key string) {
		if v, ok := lookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	durationVar := func(dst *time.Duration, key string) {
		if v, ok := lookupEnv(key); ok {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	stringVar := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookupEnv(key); ok {
				*dst = v
				return
			}
		}
	}

	intVar(&c.AppPort, "APP_PORT")
	stringVar(&c.LogLevel, "LOG_LEVEL")

	intVar(&c.Crawl.MaxPages, "CRAWL_MAX_PAGES")
	durationVar(&c.Crawl.Timeout, "CRAWL_TIMEOUT")
	intVar(&c.Crawl.Workers, "CRAWL_WORKERS")
	stringVar(&c.Crawl.UserAgent, "CRAWL_USER_AGENT")

	stringVar(&c.Embedding.Provider, "EMBEDDING_PROVIDER")
	stringVar(&c.Embedding.URL, "EMBEDDING_URL")
	stringVar(&c.Embedding.Model, "EMBEDDING_MODEL")
	stringVar(&c.Embedding.APIKey, "EMBEDDING_API_KEY")

	stringVar(&c.LLM.BaseURL, "LLM_BASE_URL")
	stringVar(&c.LLM.APIKey, "LLM_API_KEY", "GROQ_API_KEY")
	stringVar(&c.LLM.Model, "LLM_MODEL", "GROQ_MODEL")
	durationVar(&c.LLM.Timeout, "LLM_TIMEOUT")
	if v, ok := lookupEnv("LLM_TEMPERATURE"); ok {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TEMPERATURE: %w", err))
		} else {
			c.LLM.Temperature = t
		}
	}
	intVar(&c.LLM.MaxTokens, "LLM_MAX_TOKENS")

	intVar(&c.RAG.TopK, "RAG_TOP_K")
	stringVar(&c.RAG.VectorStore, "VECTOR_STORE")

	stringVar(&c.Qdrant.Host, "QDRANT_HOST")
	intVar(&c.Qdrant.Port, "QDRANT_PORT")
	stringVar(&c.Qdrant.APIKey, "QDRANT_API_KEY")
	stringVar(&c.Qdrant.CollectionPrefix, "QDRANT_COLLECTION_PREFIX")

	stringVar(&c.Storage.CrawlDBPath, "CRAWL_DB_PATH")
	if v, ok := lookupEnv("PERSIST_CRAWLS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PERSIST_CRAWLS: %w", err))
		} else {
			c.Storage.PersistCrawls = b
		}
	}

	return errors.Join(errs...)
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.AppPort <= 0 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("app port %d out of range", c.AppPort))
	}
	if c.Crawl.MaxPages <= 0 {
		errs = append(errs, errors.New("crawl max pages must be positive"))
	}
	if c.Crawl.Timeout <= 0 {
		errs = append(errs, errors.New("crawl timeout must be positive"))
	}
	if c.Crawl.Workers <= 0 {
		errs = append(errs, errors.New("crawl workers must be positive"))
	}
	switch c.Embedding.Provider {
	case EmbeddingTEI, EmbeddingOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm temperature %.2f out of range", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("llm max tokens must be positive"))
	}
	if c.RAG.TopK <= 0 {
		errs = append(errs, errors.New("rag top k must be positive"))
	}
	switch c.RAG.VectorStore {
	case VectorStoreMemory:
	case VectorStoreQdrant:
		if c.Qdrant.Host == "" || c.Qdrant.Port <= 0 {
			errs = append(errs, errors.New("qdrant host and port are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vector store %q", c.RAG.VectorStore))
	}
	if c.Storage.PersistCrawls && c.Storage.CrawlDBPath == "" {
		errs = append(errs, errors.New("crawl db path is required when persisting crawls"))
	}
	return errors.Join(errs...)
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
