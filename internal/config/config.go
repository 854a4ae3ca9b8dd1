// Package config loads the docqa configuration from a YAML file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

const DefaultPath = "config.yaml"

const (
	ProgressBackendMemory = "memory"
	ProgressBackendRedis  = "redis"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

var (
	ErrInvalidProgressBackend = errors.New("invalid progress backend")
	ErrInvalidLogFormat       = errors.New("invalid log format")
	ErrInvalidLogLevel        = errors.New("invalid log level")
	ErrAsyncRequiresRedis     = errors.New("async uploads require the redis progress backend")
)

type ServerConfig struct {
	ListenHost       string        `yaml:"listen_host"`
	ListenPort       int           `yaml:"listen_port"`
	Async            bool          `yaml:"async"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
	MaxUploadSize    int64         `yaml:"max_upload_size"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ProgressConfig struct {
	Backend string        `yaml:"backend"`
	Expiry  time.Duration `yaml:"expiry"`
}

type VectorStoreConfig struct {
	Type       string `yaml:"type"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
	Namespace  string `yaml:"namespace"`
	Dimensions uint   `yaml:"dimensions"`

	// APIKey is read from QDRANT_API_KEY only.
	APIKey string `yaml:"-"`
}

type ModelConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	Temperature *float32 `yaml:"temperature"`
}

type ChunkerConfig struct {
	TargetSize int `yaml:"target_size"`
}

type ExtractorConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
}

type RetrievalConfig struct {
	TopK            uint   `yaml:"top_k"`
	FallbackContext string `yaml:"fallback_context"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Worker      WorkerConfig      `yaml:"worker"`
	Redis       RedisConfig       `yaml:"redis"`
	Progress    ProgressConfig    `yaml:"progress"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedder    ModelConfig       `yaml:"embedder"`
	Generator   ModelConfig       `yaml:"generator"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Extractor   ExtractorConfig   `yaml:"extractor"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	c.applyDefaults()
	return c
}

// Load reads a .env file if present, then the YAML file at path. A missing
// file at DefaultPath yields the defaults; any other missing path is an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "err", err)
	}

	if path == "" {
		path = DefaultPath
	}

	file, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
		slog.Debug("no config file found, using defaults", "path", path)
		c := Default()
		c.applyEnv()
		return c, nil
	}
	if err != nil {
		return nil, err
	}

	c, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
	}
	c.applyEnv()
	return c, nil
}

// Parse decodes YAML data into a Config, fills defaults and validates it.
func Parse(data []byte) (*Config, error) {
	c := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenPort == 0 {
		c.Server.ListenPort = 8080
	}
	if c.Server.ProgressInterval <= 0 {
		c.Server.ProgressInterval = 500 * time.Millisecond
	}
	if c.Server.MaxUploadSize <= 0 {
		c.Server.MaxUploadSize = 64 << 20
	}

	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 4
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}

	if c.Progress.Backend == "" {
		c.Progress.Backend = ProgressBackendMemory
	}
	if c.Progress.Expiry <= 0 {
		c.Progress.Expiry = 24 * time.Hour
	}

	if c.VectorStore.Type == "" {
		c.VectorStore.Type = "qdrant"
	}
	if c.VectorStore.Host == "" {
		c.VectorStore.Host = "localhost"
	}
	if c.VectorStore.Port == 0 {
		c.VectorStore.Port = 6334
	}
	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = "txt-document-vectors"
	}
	if c.VectorStore.Dimensions == 0 {
		c.VectorStore.Dimensions = 384
	}

	if c.Embedder.Provider == "" {
		c.Embedder.Provider = "gemini"
	}
	if c.Generator.Provider == "" {
		c.Generator.Provider = "gemini"
	}
	if c.Generator.Provider == "gemini" && c.Generator.Model == "" {
		c.Generator.Model = "gemini-1.5-flash"
	}

	if c.Chunker.TargetSize <= 0 {
		c.Chunker.TargetSize = 500
	}

	if c.Extractor.Provider == "" {
		c.Extractor.Provider = "pdfcpu"
	}

	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 40
	}
	if c.Retrieval.FallbackContext == "" {
		c.Retrieval.FallbackContext = "No relevant text found."
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = LogFormatText
	}
}

func (c *Config) applyEnv() {
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		c.VectorStore.APIKey = key
	}
}

// Validate reports the first invalid setting. Provider names are checked
// when the provider is constructed.
func (c *Config) Validate() error {
	switch c.Progress.Backend {
	case ProgressBackendMemory, ProgressBackendRedis:
	default:
		return fmt.Errorf("%w: '%s'", ErrInvalidProgressBackend, c.Progress.Backend)
	}
	if c.Server.Async && c.Progress.Backend != ProgressBackendRedis {
		return ErrAsyncRequiresRedis
	}

	switch c.Log.Format {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: '%s'", ErrInvalidLogFormat, c.Log.Format)
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidLogLevel, c.Log.Level)
	}
	return level, nil
}
