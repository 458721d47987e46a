// Package config loads the knowledge base's YAML configuration file,
// following the search order: explicit path -> RAG_CONFIG env var ->
// ./.vex-rag.yml -> parent directories.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vexrag/vexrag/errs"
	"github.com/vexrag/vexrag/llm"
)

const defaultFileName = ".vex-rag.yml"

// ProjectConfig names the default source project tag for indexing calls
// that don't override it.
type ProjectConfig struct {
	Name string `yaml:"name"`
}

// DatabaseConfig controls the Passage Store's backing file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// IndexingConfig controls indexer-wide defaults.
type IndexingConfig struct {
	EnableSanitization bool `yaml:"enable_sanitization"`
}

// ChunkConfig controls the Chunker.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	MinSize int `yaml:"min_size"`
}

// ContextGenerationConfig controls the Context Generator.
type ContextGenerationConfig struct {
	Enabled    bool      `yaml:"enabled"`
	MaxWorkers int       `yaml:"max_workers"`
	Model      llm.Config `yaml:"model"`
}

// RetrievalConfig controls the Retrieval Pipeline.
type RetrievalConfig struct {
	DefaultTopK     int    `yaml:"default_top_k"`
	VectorLimit     int    `yaml:"vector_limit"`
	BM25Limit       int    `yaml:"bm25_limit"`
	FusionLimit     int    `yaml:"fusion_limit"`
	EnableBM25      bool   `yaml:"enable_bm25"`
	EnableReranking bool   `yaml:"enable_reranking"`
	RerankerModel   string `yaml:"reranker_model"`
	RerankerBaseURL string `yaml:"reranker_base_url"`
}

// SecurityConfig controls the Injection Scanner and path validation.
type SecurityConfig struct {
	StrictMode       bool     `yaml:"strict_mode"`
	AllowedBasePaths []string `yaml:"allowed_base_paths"`
}

// ConsoleNotifierConfig controls the console sink.
type ConsoleNotifierConfig struct {
	Enabled bool `yaml:"enabled"`
}

// WebhookNotifierConfig controls the webhook sink.
type WebhookNotifierConfig struct {
	Enabled            bool    `yaml:"enabled"`
	URL                string  `yaml:"url"`
	Template           string  `yaml:"template"` // discord, slack, teams, generic
	MinIntervalSeconds float64 `yaml:"min_interval_seconds"`
}

// NotificationsConfig aggregates notifier sink configuration.
type NotificationsConfig struct {
	Console ConsoleNotifierConfig `yaml:"console"`
	Webhook WebhookNotifierConfig `yaml:"webhook"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// Config is the top-level `.vex-rag.yml` shape, matching spec.md §6:
// project/database/indexing sections plus the rest of the component configs.
type Config struct {
	Project          ProjectConfig           `yaml:"project"`
	Database         DatabaseConfig          `yaml:"database"`
	Indexing         IndexingConfig          `yaml:"indexing"`
	EmbeddingDim     int                     `yaml:"embedding_dim"`
	Chunk            ChunkConfig             `yaml:"chunk"`
	ContextGen       ContextGenerationConfig `yaml:"context_generation"`
	Embedding        llm.Config              `yaml:"embedding"`
	Retrieval        RetrievalConfig         `yaml:"retrieval"`
	Security         SecurityConfig          `yaml:"security"`
	Notifications    NotificationsConfig     `yaml:"notifications"`
	Logging          LoggingConfig           `yaml:"logging"`
}

// Default returns a Config with sensible defaults for a fully local setup.
func Default() Config {
	return Config{
		Database:     DatabaseConfig{Path: filepath.Join(".vexrag", "vexrag.db")},
		Indexing:     IndexingConfig{EnableSanitization: true},
		EmbeddingDim: 768,
		Chunk: ChunkConfig{
			Size:    384,
			MinSize: 100,
		},
		ContextGen: ContextGenerationConfig{
			Enabled:    true,
			MaxWorkers: 4,
			Model: llm.Config{
				Provider: "ollama",
				Model:    "llama3.1:8b",
				BaseURL:  "http://localhost:11434",
			},
		},
		Embedding: llm.Config{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		Retrieval: RetrievalConfig{
			DefaultTopK:     5,
			VectorLimit:     20,
			BM25Limit:       20,
			FusionLimit:     10,
			EnableBM25:      true,
			EnableReranking: true,
			RerankerModel:   "BAAI/bge-reranker-large",
			RerankerBaseURL: "http://localhost:11434",
		},
		Security: SecurityConfig{
			StrictMode:       false,
			AllowedBasePaths: nil,
		},
		Notifications: NotificationsConfig{
			Console: ConsoleNotifierConfig{Enabled: true},
			Webhook: WebhookNotifierConfig{Enabled: false, MinIntervalSeconds: 2.0, Template: "generic"},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load resolves and parses the config file. explicitPath, when non-empty,
// is tried first; otherwise the RAG_CONFIG env var, then ./.vex-rag.yml,
// then up to 5 parent directories are tried in order. A .env file
// alongside the resolved config (if present) is loaded into the process
// environment first, so that ${VAR} placeholders in the webhook URL
// (substituted by the notify package) can be satisfied from it. The YAML
// itself is not environment-expanded.
func Load(explicitPath string) (Config, error) {
	cfg := Default()

	path, tried, err := resolve(explicitPath)
	if err != nil {
		return cfg, errs.New(errs.ConfigMissing, "config", fmt.Errorf("no config file found, tried: %v", tried))
	}

	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errs.New(errs.ConfigMissing, "config", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errs.New(errs.ConfigMissing, "config", fmt.Errorf("parsing %s: %w", path, err))
	}

	return cfg, nil
}

// resolve finds the config file path, returning the list of paths tried
// so ConfigMissing can report a helpful hint.
func resolve(explicitPath string) (string, []string, error) {
	var tried []string

	candidates := []string{}
	if explicitPath != "" {
		candidates = append(candidates, explicitPath)
	}
	if v := os.Getenv("RAG_CONFIG"); v != "" {
		candidates = append(candidates, v)
	}
	candidates = append(candidates, defaultFileName)

	for _, c := range candidates {
		tried = append(tried, c)
		if fileExists(c) {
			return c, tried, nil
		}
	}

	// Walk up to 5 parent directories looking for .vex-rag.yml.
	dir, err := os.Getwd()
	if err == nil {
		for i := 0; i < 5; i++ {
			dir = filepath.Dir(dir)
			candidate := filepath.Join(dir, defaultFileName)
			tried = append(tried, candidate)
			if fileExists(candidate) {
				return candidate, tried, nil
			}
			if dir == filepath.Dir(dir) {
				break
			}
		}
	}

	return "", tried, fmt.Errorf("not found")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
