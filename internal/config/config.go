package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Port string

	// Auth for /api/*. Empty disables it.
	APIKey string

	// PublicBaseURL is the origin clients reach this server at; local
	// uploads are served below it.
	PublicBaseURL string

	// Editor sessions
	CharLimit     int
	EditorProfile string
	SessionTTL    time.Duration

	// Upload storage
	MaxUploadBytes int64
	StorageBackend string // placeholder, local, minio
	UploadDir      string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIORegion    string
	MinIOUseSSL    bool
	MinIOPublicURL string

	// Enhancement model
	LLMProvider     string // openai, anthropic
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string

	// Enhancement cache. Empty RedisURL keeps the cache in memory.
	RedisURL        string
	EnhanceCacheTTL time.Duration

	// Import
	PDFFallbackPdftotext bool
}

// fileConfig mirrors the optional TOML file named by INKWELL_CONFIG.
type fileConfig struct {
	Port          string `toml:"port"`
	APIKey        string `toml:"api_key"`
	PublicBaseURL string `toml:"public_base_url"`

	Editor struct {
		CharLimit  int    `toml:"char_limit"`
		Profile    string `toml:"profile"`
		SessionTTL string `toml:"session_ttl"`
	} `toml:"editor"`

	Storage struct {
		Backend        string `toml:"backend"`
		UploadDir      string `toml:"upload_dir"`
		MaxUploadBytes int64  `toml:"max_upload_bytes"`
		MinIO          struct {
			Endpoint  string `toml:"endpoint"`
			AccessKey string `toml:"access_key"`
			SecretKey string `toml:"secret_key"`
			Bucket    string `toml:"bucket"`
			Region    string `toml:"region"`
			UseSSL    bool   `toml:"use_ssl"`
			PublicURL string `toml:"public_url"`
		} `toml:"minio"`
	} `toml:"storage"`

	LLM struct {
		Provider       string `toml:"provider"`
		AnthropicModel string `toml:"anthropic_model"`
		OpenAIModel    string `toml:"openai_model"`
		OpenAIBaseURL  string `toml:"openai_base_url"`
	} `toml:"llm"`

	Cache struct {
		RedisURL string `toml:"redis_url"`
		TTL      string `toml:"ttl"`
	} `toml:"cache"`

	PDFFallbackPdftotext bool `toml:"pdf_fallback_pdftotext"`
}

func defaults() Config {
	return Config{
		Port:                 "8080",
		PublicBaseURL:        "http://localhost:8080",
		CharLimit:            280,
		EditorProfile:        "full",
		SessionTTL:           30 * time.Minute,
		MaxUploadBytes:       10 << 20,
		StorageBackend:       "placeholder",
		UploadDir:            "./uploads",
		MinIOBucket:          "inkwell",
		LLMProvider:          "openai",
		AnthropicModel:       "claude-sonnet-4-5-20250929",
		OpenAIModel:          "gpt-3.5-turbo",
		EnhanceCacheTTL:      24 * time.Hour,
		PDFFallbackPdftotext: true,
	}
}

// Load reads defaults, then the TOML file named by INKWELL_CONFIG if
// set, then environment variables. Later sources win.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("INKWELL_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.clamp()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var f fileConfig
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config %s: unknown key %s", path, undecoded[0])
	}

	setStr := func(dst *string, v string, key ...string) {
		if meta.IsDefined(key...) {
			*dst = v
		}
	}
	setStr(&c.Port, f.Port, "port")
	setStr(&c.APIKey, f.APIKey, "api_key")
	setStr(&c.PublicBaseURL, f.PublicBaseURL, "public_base_url")

	if meta.IsDefined("editor", "char_limit") {
		c.CharLimit = f.Editor.CharLimit
	}
	setStr(&c.EditorProfile, f.Editor.Profile, "editor", "profile")
	if meta.IsDefined("editor", "session_ttl") {
		d, err := time.ParseDuration(f.Editor.SessionTTL)
		if err != nil {
			return fmt.Errorf("config editor.session_ttl: %w", err)
		}
		c.SessionTTL = d
	}

	setStr(&c.StorageBackend, f.Storage.Backend, "storage", "backend")
	setStr(&c.UploadDir, f.Storage.UploadDir, "storage", "upload_dir")
	if meta.IsDefined("storage", "max_upload_bytes") {
		c.MaxUploadBytes = f.Storage.MaxUploadBytes
	}
	setStr(&c.MinIOEndpoint, f.Storage.MinIO.Endpoint, "storage", "minio", "endpoint")
	setStr(&c.MinIOAccessKey, f.Storage.MinIO.AccessKey, "storage", "minio", "access_key")
	setStr(&c.MinIOSecretKey, f.Storage.MinIO.SecretKey, "storage", "minio", "secret_key")
	setStr(&c.MinIOBucket, f.Storage.MinIO.Bucket, "storage", "minio", "bucket")
	setStr(&c.MinIORegion, f.Storage.MinIO.Region, "storage", "minio", "region")
	setStr(&c.MinIOPublicURL, f.Storage.MinIO.PublicURL, "storage", "minio", "public_url")
	if meta.IsDefined("storage", "minio", "use_ssl") {
		c.MinIOUseSSL = f.Storage.MinIO.UseSSL
	}

	setStr(&c.LLMProvider, f.LLM.Provider, "llm", "provider")
	setStr(&c.AnthropicModel, f.LLM.AnthropicModel, "llm", "anthropic_model")
	setStr(&c.OpenAIModel, f.LLM.OpenAIModel, "llm", "openai_model")
	setStr(&c.OpenAIBaseURL, f.LLM.OpenAIBaseURL, "llm", "openai_base_url")

	setStr(&c.RedisURL, f.Cache.RedisURL, "cache", "redis_url")
	if meta.IsDefined("cache", "ttl") {
		d, err := time.ParseDuration(f.Cache.TTL)
		if err != nil {
			return fmt.Errorf("config cache.ttl: %w", err)
		}
		c.EnhanceCacheTTL = d
	}
	if meta.IsDefined("pdf_fallback_pdftotext") {
		c.PDFFallbackPdftotext = f.PDFFallbackPdftotext
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.APIKey = envOr("INKWELL_API_KEY", c.APIKey)
	c.PublicBaseURL = envOr("PUBLIC_BASE_URL", c.PublicBaseURL)

	c.CharLimit = envInt("CHAR_LIMIT", c.CharLimit)
	c.EditorProfile = envOr("EDITOR_PROFILE", c.EditorProfile)
	c.SessionTTL = envDuration("SESSION_TTL", c.SessionTTL)

	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.StorageBackend = envOr("STORAGE_BACKEND", c.StorageBackend)
	c.UploadDir = envOr("UPLOAD_DIR", c.UploadDir)
	c.MinIOEndpoint = envOr("MINIO_ENDPOINT", c.MinIOEndpoint)
	c.MinIOAccessKey = envOr("MINIO_ACCESS_KEY", c.MinIOAccessKey)
	c.MinIOSecretKey = envOr("MINIO_SECRET_KEY", c.MinIOSecretKey)
	c.MinIOBucket = envOr("MINIO_BUCKET", c.MinIOBucket)
	c.MinIORegion = envOr("MINIO_REGION", c.MinIORegion)
	c.MinIOUseSSL = envBool("MINIO_USE_SSL", c.MinIOUseSSL)
	c.MinIOPublicURL = envOr("MINIO_PUBLIC_URL", c.MinIOPublicURL)

	c.LLMProvider = envOr("LLM_PROVIDER", c.LLMProvider)
	c.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = envOr("ANTHROPIC_MODEL", c.AnthropicModel)
	c.OpenAIAPIKey = envOr("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = envOr("OPENAI_MODEL", c.OpenAIModel)
	c.OpenAIBaseURL = envOr("OPENAI_BASE_URL", c.OpenAIBaseURL)

	c.RedisURL = envOr("REDIS_URL", c.RedisURL)
	c.EnhanceCacheTTL = envDuration("ENHANCE_CACHE_TTL", c.EnhanceCacheTTL)

	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)
}

func (c *Config) clamp() {
	d := defaults()
	if c.CharLimit <= 0 {
		c.CharLimit = d.CharLimit
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.EnhanceCacheTTL <= 0 {
		c.EnhanceCacheTTL = d.EnhanceCacheTTL
	}
	c.EditorProfile = strings.ToLower(c.EditorProfile)
	c.StorageBackend = strings.ToLower(c.StorageBackend)
	c.LLMProvider = strings.ToLower(c.LLMProvider)
}

func (c Config) Validate() error {
	switch c.EditorProfile {
	case "full", "basic":
	default:
		return fmt.Errorf("EDITOR_PROFILE must be full or basic, got %q", c.EditorProfile)
	}
	switch c.StorageBackend {
	case "placeholder":
	case "local":
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for the local storage backend")
		}
	case "minio":
		if c.MinIOEndpoint == "" || c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			return fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio storage backend")
		}
		if c.MinIOBucket == "" {
			return fmt.Errorf("MINIO_BUCKET is required")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.LLMProvider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}

// LLMConfigured reports whether the selected provider has a key.
func (c Config) LLMConfigured() bool {
	if c.LLMProvider == "anthropic" {
		return c.AnthropicAPIKey != ""
	}
	return c.OpenAIAPIKey != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
