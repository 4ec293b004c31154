// Package config loads normareg's configuration from environment variables,
// an optional .env file, and an optional YAML file, in that precedence order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LLMBackend selects which Gateway implementation serves agent prompts.
type LLMBackend string

const (
	LLMBackendOllama LLMBackend = "ollama-local"
	LLMBackendOpenAI LLMBackend = "openai-cloud"
	LLMBackendGemini LLMBackend = "gemini-cloud"
)

// Config is the root configuration for normareg.
type Config struct {
	LLMType       LLMBackend `mapstructure:"llm_type" yaml:"llm_type"`
	OllamaBaseURL string     `mapstructure:"ollama_base_url" yaml:"ollama_base_url"`
	OllamaModel   string     `mapstructure:"ollama_model" yaml:"ollama_model"`
	OpenAIAPIKey  string     `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	OpenAIModel   string     `mapstructure:"openai_model" yaml:"openai_model"`
	GeminiAPIKey  string     `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	GeminiModel   string     `mapstructure:"gemini_model" yaml:"gemini_model"`

	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
	RepoPath    string `mapstructure:"repo_path" yaml:"repo_path"`

	EmbeddingModel string `mapstructure:"embedding_model" yaml:"embedding_model"`
	EmbeddingDim   int    `mapstructure:"embedding_dim" yaml:"embedding_dim"`

	LLMMinTokens int           `mapstructure:"llm_min_tokens" yaml:"llm_min_tokens"`
	LLMTimeout   time.Duration `mapstructure:"llm_timeout" yaml:"llm_timeout"`

	// CodeReaderKeywordBoost: when the initial semantic search returns zero
	// hits, append domain keywords to the query before retrying. Off by
	// default.
	CodeReaderKeywordBoost bool `mapstructure:"code_reader_keyword_boost" yaml:"code_reader_keyword_boost"`

	// CodeReaderThreshold is the minimum cosine score a vector index match
	// must clear to be treated as an impacted file. Defaults to 0.0 (always
	// return the top-k if any exist); raise it to suppress low-quality hits.
	CodeReaderThreshold float64 `mapstructure:"code_reader_threshold" yaml:"code_reader_threshold"`

	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr"`
}

// Load reads configuration from (in increasing precedence) defaults, an
// optional YAML file at configPath, and environment variables, via viper's
// standard layering. An optional .env file is loaded into the process
// environment first (without overriding variables already set), so its
// values rank as environment variables.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NORMAREG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm_type", string(LLMBackendOllama))
	v.SetDefault("ollama_base_url", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama2")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("database_url", "postgres://localhost:5432/normareg?sslmode=disable")
	v.SetDefault("repo_path", ".")
	v.SetDefault("embedding_model", "hashed-bow-v1")
	v.SetDefault("embedding_dim", 384)
	v.SetDefault("llm_min_tokens", 16)
	v.SetDefault("llm_timeout", 60*time.Second)
	v.SetDefault("code_reader_keyword_boost", false)
	v.SetDefault("code_reader_threshold", 0.0)
	v.SetDefault("http_addr", ":8080")
}

func bindEnv(v *viper.Viper) {
	// Bare (non-prefixed) env names, for compatibility with deployments that
	// don't use the NORMAREG_ prefix.
	for _, key := range []string{
		"llm_type", "ollama_base_url", "ollama_model",
		"openai_api_key", "openai_model", "gemini_api_key", "gemini_model",
		"database_url", "repo_path", "embedding_model", "llm_min_tokens",
	} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY")
}

// Redacted returns a copy of Config with API key fields blanked out, safe to
// print or log.
func (c Config) Redacted() Config {
	if c.OpenAIAPIKey != "" {
		c.OpenAIAPIKey = "***"
	}
	if c.GeminiAPIKey != "" {
		c.GeminiAPIKey = "***"
	}
	return c
}

func (c *Config) validate() error {
	switch c.LLMType {
	case LLMBackendOllama, LLMBackendOpenAI, LLMBackendGemini:
	default:
		return fmt.Errorf("unknown llm_type %q", c.LLMType)
	}
	if c.LLMType == LLMBackendOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("openai_api_key is required when llm_type=%s", LLMBackendOpenAI)
	}
	if c.LLMType == LLMBackendGemini && c.GeminiAPIKey == "" {
		return fmt.Errorf("gemini_api_key is required when llm_type=%s", LLMBackendGemini)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding_dim must be positive")
	}
	return nil
}
