package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Catalog      CatalogConfig      `yaml:"catalog" mapstructure:"catalog"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
}

// LLMConfig selects the hosted completion service.
// Decoding parameters are not configurable: temperature and top_p are fixed.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, groq, anthropic, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"` // Never written to config files
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the completion cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	SectionWorkers int `yaml:"section_workers" mapstructure:"section_workers"` // 1 = sequential synthesis
	BatchWorkers   int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// RateLimitingConfig bounds outbound model requests per endpoint
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// RetryConfig controls retries of retryable gateway failures
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// OutputConfig controls report persistence and verbosity
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	PDFFont string `yaml:"pdf_font,omitempty" mapstructure:"pdf_font"` // TrueType font for --pdf; empty searches for DejaVu Sans
}

// CatalogConfig points at an alternate section catalog (empty = built-in)
type CatalogConfig struct {
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// StoreConfig selects where reports are persisted
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // file, postgres
	DSN    string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "groq",
			Timeout:   30,
			MaxTokens: 8000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			SectionWorkers: 4,
			BatchWorkers:   2,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         4,
		},
		Retry: RetryConfig{
			MaxAttempts: 2,
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Store: StoreConfig{
			Driver: "file",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
