package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"resumatch/internal/chunker"
	"resumatch/internal/embedding/hashing"
	"resumatch/internal/matcher"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// StorageConfig locates uploaded resumes, vector files and the index.
// Relative paths are resolved against DataDir.
type StorageConfig struct {
	DataDir       string `yaml:"data_dir"`
	ResumesDir    string `yaml:"resumes_dir"`
	EmbeddingsDir string `yaml:"embeddings_dir"`
	IndexFile     string `yaml:"index_file"`
	// Vectors is "npy" (files next to the index) or "memory" (lost on exit).
	Vectors string `yaml:"vectors"`
}

// HashingEmbedderConfig configures the local feature-hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type    string                 `yaml:"type"`
	Hashing *HashingEmbedderConfig `yaml:"hashing,omitempty"`
	OpenAI  *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
}

// SegmenterConfig configures sentence splitting.
type SegmenterConfig struct {
	MaxSentences  int `yaml:"max_sentences"`
	FallbackChars int `yaml:"fallback_chars"`
}

// MatchingConfig configures scoring and snippets.
type MatchingConfig struct {
	SentenceWeight   *float64 `yaml:"sentence_weight"`
	SnippetThreshold *float64 `yaml:"snippet_threshold"`
	SnippetChars     int      `yaml:"snippet_chars"`
	DefaultTopK      int      `yaml:"default_top_k"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	JSON  bool `yaml:"json"`
	Debug bool `yaml:"debug"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Matching  MatchingConfig  `yaml:"matching"`
	Log       LogConfig       `yaml:"log"`
}

// Matcher returns the scoring settings with defaults filled in.
func (c *AppConfig) Matcher() matcher.Config {
	cfg := matcher.DefaultConfig()
	if c.Matching.SentenceWeight != nil {
		cfg.SentenceWeight = *c.Matching.SentenceWeight
	}
	if c.Matching.SnippetThreshold != nil {
		cfg.SnippetThreshold = *c.Matching.SnippetThreshold
	}
	if c.Matching.SnippetChars > 0 {
		cfg.SnippetChars = c.Matching.SnippetChars
	}
	return cfg
}

// ResumesPath is the folder uploads are written to and rebuilds scan.
func (c *AppConfig) ResumesPath() string { return c.resolve(c.Storage.ResumesDir) }

// EmbeddingsPath is the folder holding vector files.
func (c *AppConfig) EmbeddingsPath() string { return c.resolve(c.Storage.EmbeddingsDir) }

// IndexPath is the JSON index file.
func (c *AppConfig) IndexPath() string {
	if filepath.IsAbs(c.Storage.IndexFile) {
		return c.Storage.IndexFile
	}
	return filepath.Join(c.EmbeddingsPath(), c.Storage.IndexFile)
}

func (c *AppConfig) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Storage.DataDir, p)
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/resumatch/config.yaml.
// If neither exists, it writes defaults to ~/.config/resumatch/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "resumatch", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.ResumesDir == "" {
		cfg.Storage.ResumesDir = "resumes"
	}
	if cfg.Storage.EmbeddingsDir == "" {
		cfg.Storage.EmbeddingsDir = "embeddings"
	}
	if cfg.Storage.IndexFile == "" {
		cfg.Storage.IndexFile = "index.json"
	}
	if cfg.Storage.Vectors == "" {
		cfg.Storage.Vectors = "npy"
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Type == "hashing" {
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = hashing.DefaultDimension
		}
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.Segmenter.MaxSentences == 0 {
		cfg.Segmenter.MaxSentences = chunker.DefaultMaxSentences
	}
	if cfg.Segmenter.FallbackChars == 0 {
		cfg.Segmenter.FallbackChars = chunker.DefaultFallbackChars
	}
	if cfg.Matching.SentenceWeight == nil {
		w := matcher.DefaultSentenceWeight
		cfg.Matching.SentenceWeight = &w
	}
	if cfg.Matching.SnippetThreshold == nil {
		th := matcher.DefaultSnippetThreshold
		cfg.Matching.SnippetThreshold = &th
	}
	if cfg.Matching.SnippetChars == 0 {
		cfg.Matching.SnippetChars = matcher.DefaultSnippetChars
	}
	if cfg.Matching.DefaultTopK == 0 {
		cfg.Matching.DefaultTopK = 5
	}
}
