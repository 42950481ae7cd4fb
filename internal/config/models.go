package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mikey/llm-doc-detector/internal/policy"
	"github.com/mikey/llm-doc-detector/internal/secrets"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	ModelName string
	MaxTokens int
	Timeout   time.Duration
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey    string
	ModelName string
	MaxTokens int
	Timeout   time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region    string
	ModelID   string
	MaxTokens int
	Timeout   time.Duration
}

// DetectionConfig holds the pipeline settings shared by all policies
type DetectionConfig struct {
	Policies       []string
	MaxConcurrency int
	Deadline       time.Duration
	RetryDelay     time.Duration
	MaxLogLength   int
}

// CacheConfig represents the verdict cache settings
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisPrefix      string
}

// S3Config locates attachments stored in S3
type S3Config struct {
	Bucket       string
	Region       string
	Prefix       string
	Endpoint     string
	UsePathStyle bool
}

// ServerConfig represents the mail filter settings
type ServerConfig struct {
	FilterType      string
	ListenAddress   string
	HeaderPrefix    string
	MaxMessageBytes int64
	Postfix         PostfixConfig
}

// PostfixConfig is the re-injection target of the content filter
type PostfixConfig struct {
	Enabled bool
	Address string
	Port    int
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: strings.ToLower(strings.TrimSpace(c.GetString("llm.provider"))),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() (OpenAIConfig, error) {
	key, err := secrets.Load(secrets.Source{
		Name:  "openai api key",
		Value: c.GetString("openai.api_key"),
		File:  c.GetString("openai.api_key_file"),
	})
	if err != nil {
		return OpenAIConfig{}, err
	}
	timeout, err := c.GetDuration("openai.timeout")
	if err != nil {
		return OpenAIConfig{}, err
	}
	return OpenAIConfig{
		APIKey:    key,
		BaseURL:   c.GetString("openai.base_url"),
		ModelName: c.GetString("openai.model_name"),
		MaxTokens: c.GetInt("openai.max_tokens"),
		Timeout:   timeout,
	}, nil
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() (GeminiConfig, error) {
	key, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: c.GetString("gemini.api_key"),
		File:  c.GetString("gemini.api_key_file"),
	})
	if err != nil {
		return GeminiConfig{}, err
	}
	timeout, err := c.GetDuration("gemini.timeout")
	if err != nil {
		return GeminiConfig{}, err
	}
	return GeminiConfig{
		APIKey:    key,
		ModelName: c.GetString("gemini.model_name"),
		MaxTokens: c.GetInt("gemini.max_tokens"),
		Timeout:   timeout,
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() (BedrockConfig, error) {
	timeout, err := c.GetDuration("bedrock.timeout")
	if err != nil {
		return BedrockConfig{}, err
	}
	return BedrockConfig{
		Region:    c.GetString("bedrock.region"),
		ModelID:   c.GetString("bedrock.model_id"),
		MaxTokens: c.GetInt("bedrock.max_tokens"),
		Timeout:   timeout,
	}, nil
}

// GetDetection returns the pipeline settings
func (c *Config) GetDetection() (DetectionConfig, error) {
	deadline, err := c.GetDuration("detection.deadline")
	if err != nil {
		return DetectionConfig{}, err
	}
	retryDelay, err := c.GetDuration("detection.retry_delay")
	if err != nil {
		return DetectionConfig{}, err
	}
	if retryDelay <= 0 {
		return DetectionConfig{}, fmt.Errorf("detection.retry_delay must be positive, got %s", retryDelay)
	}
	maxConcurrency := c.GetInt("detection.max_concurrency")
	if maxConcurrency <= 0 {
		return DetectionConfig{}, fmt.Errorf("detection.max_concurrency must be positive, got %d", maxConcurrency)
	}
	return DetectionConfig{
		Policies:       c.GetStringSlice("detection.policies"),
		MaxConcurrency: maxConcurrency,
		Deadline:       deadline,
		RetryDelay:     retryDelay,
		MaxLogLength:   c.GetInt("detection.max_log_length"),
	}, nil
}

// GetPolicyOverrides returns per-policy tunables found under policies.<name>
func (c *Config) GetPolicyOverrides() map[string]policy.Overrides {
	overrides := make(map[string]policy.Overrides)
	for _, name := range policy.Names() {
		prefix := "policies." + name + "."
		var o policy.Overrides
		if c.IsSet(prefix + "high_threshold") {
			v := c.GetInt(prefix + "high_threshold")
			o.HighThreshold = &v
		}
		if c.IsSet(prefix + "low_threshold") {
			v := c.GetInt(prefix + "low_threshold")
			o.LowThreshold = &v
		}
		if c.IsSet(prefix + "ai_confidence_cutoff") {
			v := c.GetFloat64(prefix + "ai_confidence_cutoff")
			o.AIConfidenceCutoff = &v
		}
		if c.IsSet(prefix + "ai_weight") {
			v := c.GetFloat64(prefix + "ai_weight")
			o.AIWeight = &v
		}
		if c.IsSet(prefix + "personal_domains") {
			o.PersonalDomains = c.GetStringSlice(prefix + "personal_domains")
		}
		if c.IsSet(prefix + "allowed_mime_types") {
			o.AllowedMimeTypes = c.GetStringSlice(prefix + "allowed_mime_types")
		}
		overrides[name] = o
	}
	return overrides
}

// GetCache returns the verdict cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	password, err := secrets.Optional(secrets.Source{
		Name:  "redis password",
		Value: c.GetString("cache.redis_password"),
		File:  c.GetString("cache.redis_password_file"),
	})
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Type:             strings.ToLower(c.GetString("cache.type")),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddr:        c.GetString("cache.redis_addr"),
		RedisPassword:    password,
		RedisDB:          c.GetInt("cache.redis_db"),
		RedisPrefix:      c.GetString("cache.redis_prefix"),
	}, nil
}

// GetS3 returns the attachment storage configuration
func (c *Config) GetS3() S3Config {
	return S3Config{
		Bucket:       c.GetString("storage.s3.bucket"),
		Region:       c.GetString("storage.s3.region"),
		Prefix:       c.GetString("storage.s3.prefix"),
		Endpoint:     c.GetString("storage.s3.endpoint"),
		UsePathStyle: c.GetBool("storage.s3.use_path_style"),
	}
}

// GetServer returns the mail filter configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:      strings.ToLower(c.GetString("server.filter_type")),
		ListenAddress:   c.GetString("server.listen_address"),
		HeaderPrefix:    c.GetString("server.header_prefix"),
		MaxMessageBytes: int64(c.GetInt("server.max_message_bytes")),
		Postfix: PostfixConfig{
			Enabled: c.GetBool("server.postfix.enabled"),
			Address: c.GetString("server.postfix.address"),
			Port:    c.GetInt("server.postfix.port"),
		},
	}
}
