package config

import (
	"fmt"
	"time"
)

// ClassifierConfig selects the classifier behind the detection service
type ClassifierConfig struct {
	Provider  string
	ModelPath string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// DetectionConfig holds verdict thresholds and trusted senders
type DetectionConfig struct {
	Threshold      float64
	TrustedDomains []string
}

// HeaderNames are the headers added to filtered messages
type HeaderNames struct {
	Phishing    string
	Probability string
	Reason      string
}

// PostfixConfig is where filtered mail is reinjected
type PostfixConfig struct {
	Address string
	Port    int
	Enabled bool
}

// ServerConfig configures the active email filter
type ServerConfig struct {
	FilterType    string
	ListenAddress string
	BlockPhishing bool
	Headers       HeaderNames
	Postfix       PostfixConfig
	SubjectPrefix string
	ModifySubject bool
}

// IMAPConfig configures the mailbox poller
type IMAPConfig struct {
	Address      string
	Username     string
	Password     string
	Folders      []string
	MaxMessages  int
	PollInterval time.Duration
}

// CacheConfig configures verdict caching
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddress     string
	RedisPassword    string
	RedisDB          int
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Provider:  c.GetString("classifier.provider"),
		ModelPath: c.GetString("classifier.model_path"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetDetection returns the detection configuration
func (c *Config) GetDetection() DetectionConfig {
	return DetectionConfig{
		Threshold:      c.GetFloat64("detection.threshold"),
		TrustedDomains: c.GetStringSlice("detection.trusted_domains"),
	}
}

// GetServer returns the filter server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:    c.GetString("server.filter_type"),
		ListenAddress: c.GetString("server.listen_address"),
		BlockPhishing: c.GetBool("server.block_phishing"),
		Headers: HeaderNames{
			Phishing:    c.GetString("server.headers.phishing"),
			Probability: c.GetString("server.headers.probability"),
			Reason:      c.GetString("server.headers.reason"),
		},
		Postfix: PostfixConfig{
			Address: c.GetString("server.postfix.address"),
			Port:    c.GetInt("server.postfix.port"),
			Enabled: c.GetBool("server.postfix.enabled"),
		},
		SubjectPrefix: c.GetString("server.subject_prefix"),
		ModifySubject: c.GetBool("server.modify_subject"),
	}
}

// GetIMAP returns the IMAP poller configuration
func (c *Config) GetIMAP() (IMAPConfig, error) {
	interval, err := c.GetDuration("imap.poll_interval")
	if err != nil {
		return IMAPConfig{}, fmt.Errorf("invalid imap poll interval: %w", err)
	}
	return IMAPConfig{
		Address:      c.GetString("imap.address"),
		Username:     c.GetString("imap.username"),
		Password:     c.GetString("imap.password"),
		Folders:      c.GetStringSlice("imap.folders"),
		MaxMessages:  c.GetInt("imap.max_messages"),
		PollInterval: interval,
	}, nil
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache TTL: %w", err)
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddress:     c.GetString("cache.redis_address"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
	}, nil
}
