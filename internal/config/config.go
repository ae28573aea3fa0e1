package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// APIKeyMarker 是有效上游密钥必须包含的片段，缺失时进入演示模式。
const APIKeyMarker = "sk-proj"

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	LLM       LLMConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Log       LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	var redis RedisConfig
	if err := envconfig.Process("", &redis); err != nil {
		return nil, fmt.Errorf("invalid redis configuration: %w", err)
	}

	var log LogConfig
	if err := envconfig.Process("", &log); err != nil {
		return nil, fmt.Errorf("invalid log configuration: %w", err)
	}

	return &Config{
		Server:    server,
		LLM:       llm,
		RateLimit: rateLimit,
		Redis:     redis,
		Log:       log,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port        string `envconfig:"PORT" default:"3001"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	FrontendURL string `envconfig:"FRONTEND_URL"`
	StaticDir   string `envconfig:"STATIC_DIR" default:"dist"`

	Addr string `ignored:"true"`
}

// IsProduction 表示是否运行在生产环境。
func (c ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server configuration: %w", err)
	}

	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = "3001"
	}

	switch {
	case strings.Contains(port, ":"):
		// 允许直接传入 ":3001" 或 "127.0.0.1:3001"。
		cfg.Addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		cfg.Addr = ":" + port
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	return cfg, nil
}

// LLMConfig 描述上游大模型接口配置。
type LLMConfig struct {
	APIKey      string        `envconfig:"LLM_API_KEY"`
	ProviderURL string        `envconfig:"LLM_PROVIDER_URL" default:"https://api.openai.com/v1/chat/completions"`
	Model       string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	MaxTokens   int           `envconfig:"LLM_MAX_TOKENS" default:"600"`
	Temperature float64       `envconfig:"LLM_TEMPERATURE" default:"0.8"`
	Timeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
}

// Enabled 表示是否提供了形如上游密钥的 API Key。
func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && strings.Contains(c.APIKey, APIKeyMarker)
}

func loadLLMConfig() (LLMConfig, error) {
	var cfg LLMConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return LLMConfig{}, fmt.Errorf("invalid llm configuration: %w", err)
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.ProviderURL = strings.TrimSpace(cfg.ProviderURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		return LLMConfig{}, fmt.Errorf("invalid LLM_MAX_TOKENS value %d: must be positive", cfg.MaxTokens)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return LLMConfig{}, fmt.Errorf("invalid LLM_TEMPERATURE value %v: must be within [0, 2]", cfg.Temperature)
	}
	return cfg, nil
}

// Rate limiter scopes decide how the client key is derived from a request.
const (
	ScopeIP      = "ip"
	ScopeSession = "session"
	ScopeGlobal  = "global"
)

// Rate limiter backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// RateLimitConfig 描述限流策略。
type RateLimitConfig struct {
	Cooldown      time.Duration `envconfig:"RATE_LIMIT_COOLDOWN" default:"20s"`
	Scope         string        `envconfig:"RATE_LIMIT_SCOPE" default:"ip"`
	Backend       string        `envconfig:"RATE_LIMIT_BACKEND" default:"memory"`
	SweepInterval time.Duration `envconfig:"RATE_LIMIT_SWEEP_INTERVAL" default:"1m"`
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	var cfg RateLimitConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid rate limit configuration: %w", err)
	}

	if cfg.Cooldown < 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_COOLDOWN value %s", cfg.Cooldown)
	}

	cfg.Scope = strings.ToLower(strings.TrimSpace(cfg.Scope))
	switch cfg.Scope {
	case ScopeIP, ScopeSession, ScopeGlobal:
	default:
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_SCOPE value %q", cfg.Scope)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch cfg.Backend {
	case BackendMemory, BackendRedis:
	default:
		return RateLimitConfig{}, fmt.Errorf("invalid RATE_LIMIT_BACKEND value %q", cfg.Backend)
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return cfg, nil
}

// RedisConfig 描述 Redis 连接参数，仅在限流后端为 redis 时使用。
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	Username string `envconfig:"REDIS_USERNAME"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// LogConfig 描述日志配置。
type LogConfig struct {
	Level    string `envconfig:"LOG_LEVEL" default:"info"`
	Encoding string `envconfig:"LOG_ENCODING" default:"json"`
}
