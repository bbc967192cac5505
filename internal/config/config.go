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

// ProviderConfig describes one OpenAI-compatible endpoint.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// StoreConfig selects the vector index backend.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	PersistDir string `yaml:"persist_dir"`
	Collection string `yaml:"collection"`
	PgConn     string `yaml:"pg_conn"`
}

// ChunkConfig configures the recursive splitter.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// WebSearchConfig configures the web-search fallback.
type WebSearchConfig struct {
	Enabled    bool    `yaml:"enabled"`
	BaseURL    string  `yaml:"base_url"`
	MaxResults int     `yaml:"max_results"`
	RatePerSec float64 `yaml:"rate_per_sec"`
}

type Config struct {
	ServerAddr string `yaml:"server_addr"`
	LogLevel   string `yaml:"log_level"`

	LLM        ProviderConfig `yaml:"llm"`
	Summarizer ProviderConfig `yaml:"summarizer"`
	Embed      ProviderConfig `yaml:"embed"`
	EmbedDim   int            `yaml:"embed_dim"`
	EmbedBatch int            `yaml:"embed_batch"`

	Store     StoreConfig     `yaml:"store"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	TopK      int             `yaml:"top_k"`
	WebSearch WebSearchConfig `yaml:"web_search"`

	// PDFExtractor is "rsc" (pure Go) or "pdftotext" (poppler binary).
	PDFExtractor string `yaml:"pdf_extractor"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerAddr: ":8080",
		LogLevel:   "info",
		LLM: ProviderConfig{
			Name:    "DeepSeek",
			BaseURL: "https://api.deepseek.com/v1",
			Model:   "deepseek-chat",
		},
		Summarizer: ProviderConfig{
			Name:    "Gemini",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:   "gemini-2.5-flash",
		},
		Embed: ProviderConfig{
			Name:    "Embedding",
			BaseURL: "https://api.openai.com/v1",
			Model:   "text-embedding-3-small",
		},
		EmbedDim:   1536,
		EmbedBatch: 64,
		Store: StoreConfig{
			Backend:    "bolt",
			PersistDir: "data/index",
			Collection: "lumina_docs",
		},
		Chunk:        ChunkConfig{Size: 1000, Overlap: 200},
		TopK:         5,
		WebSearch:    WebSearchConfig{Enabled: false, BaseURL: "https://html.duckduckgo.com/html/", MaxResults: 5, RatePerSec: 1},
		PDFExtractor: "rsc",

		RequestTimeout: 60 * time.Second,
	}
}

// Load builds the configuration: .env, defaults, optional YAML file at path
// (or LUMINA_CONFIG), then environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv("LUMINA_CONFIG")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddr = getenv("SERVER_ADDR", c.ServerAddr)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)

	c.LLM.Name = getenv("LLM_PROVIDER", c.LLM.Name)
	c.LLM.BaseURL = getenv("DEEPSEEK_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = getenv("DEEPSEEK_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getenv("LLM_MODEL", c.LLM.Model)

	c.Summarizer.BaseURL = getenv("SUMMARIZER_BASE_URL", c.Summarizer.BaseURL)
	c.Summarizer.APIKey = getenv("SUMMARIZER_API_KEY", getenv("GOOGLE_API_KEY", c.Summarizer.APIKey))
	c.Summarizer.Model = getenv("SUMMARIZER_MODEL", c.Summarizer.Model)

	c.Embed.BaseURL = getenv("EMBED_BASE_URL", c.Embed.BaseURL)
	c.Embed.APIKey = getenv("EMBED_API_KEY", getenv("OPENAI_API_KEY", c.Embed.APIKey))
	c.Embed.Model = getenv("EMBED_MODEL", c.Embed.Model)
	c.EmbedDim = getenvInt("EMBED_DIM", c.EmbedDim)

	c.Store.Backend = getenv("STORE_BACKEND", c.Store.Backend)
	c.Store.PersistDir = getenv("PERSIST_DIR", c.Store.PersistDir)
	c.Store.Collection = getenv("COLLECTION_NAME", c.Store.Collection)
	c.Store.PgConn = getenv("PG_CONN", c.Store.PgConn)

	c.Chunk.Size = getenvInt("CHUNK_SIZE", c.Chunk.Size)
	c.Chunk.Overlap = getenvInt("CHUNK_OVERLAP", c.Chunk.Overlap)
	c.TopK = getenvInt("TOP_K", c.TopK)

	c.WebSearch.Enabled = getenvBool("WEB_SEARCH_ENABLED", c.WebSearch.Enabled)
	c.WebSearch.MaxResults = getenvInt("WEB_SEARCH_MAX_RESULTS", c.WebSearch.MaxResults)

	c.PDFExtractor = getenv("PDF_EXTRACTOR", c.PDFExtractor)
	c.RequestTimeout = getenvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", c.Chunk.Overlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	switch c.Store.Backend {
	case "bolt", "sqlite", "memory":
	case "postgres":
		if c.Store.PgConn == "" {
			return errors.New("postgres backend requires PG_CONN")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Collection == "" {
		return errors.New("collection name is required")
	}
	switch c.PDFExtractor {
	case "rsc", "pdftotext":
	default:
		return fmt.Errorf("unknown pdf extractor %q", c.PDFExtractor)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func getenvBool(k string, def bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k))); err == nil {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
