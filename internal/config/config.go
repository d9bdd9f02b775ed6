// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type APIConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type OpsConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // terminal snapshot cache TTL
}

// ScraperConfig drives the external job-runner client.
type ScraperConfig struct {
	Token             string            `yaml:"token"`
	BaseURL           string            `yaml:"base_url"`
	Actors            map[string]string `yaml:"actors"` // platform -> actor id
	PreferPlatformAPI bool              `yaml:"prefer_platform_api"`
}

type YouTubeConfig struct {
	APIKey string `yaml:"api_key"`
}

// TranscriptionConfig bounds the transcript resolution chain.
type TranscriptionConfig struct {
	OpenAIKey       string        `yaml:"openai_key"`
	Model           string        `yaml:"model"`
	GeminiKey       string        `yaml:"gemini_key"`       // optional content analysis
	AnalysisModel   string        `yaml:"analysis_model"`   // gemini model name
	StrategyTimeout time.Duration `yaml:"strategy_timeout"` // per-strategy bound
	MaxDuration     time.Duration `yaml:"max_duration"`     // longest media eligible for full transcription
	ChunkDuration   time.Duration `yaml:"chunk_duration"`   // long-form chunk size
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent speech-to-text calls
}

type CreditsConfig struct {
	CostPerJob       int64 `yaml:"cost_per_job"`
	PromotionalGrant int64 `yaml:"promotional_grant"` // granted when an account is first seen
	AllocationCap    int64 `yaml:"allocation_cap"`
	SubmitRatePerMin int   `yaml:"submit_rate_per_min"`
}

type Config struct {
	Log           LogConfig           `yaml:"log"`
	API           APIConfig           `yaml:"api"`
	Ops           OpsConfig           `yaml:"ops"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Scraper       ScraperConfig       `yaml:"scraper"`
	YouTube       YouTubeConfig       `yaml:"youtube"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Credits       CreditsConfig       `yaml:"credits"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.Ops.Port == 0 {
		cfg.Ops.Port = 9090
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Scraper.BaseURL == "" {
		cfg.Scraper.BaseURL = "https://api.apify.com/v2"
	}
	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = "whisper-1"
	}
	if cfg.Transcription.AnalysisModel == "" {
		cfg.Transcription.AnalysisModel = "gemini-2.0-flash"
	}
	if cfg.Transcription.StrategyTimeout <= 0 {
		cfg.Transcription.StrategyTimeout = 15 * time.Second
	}
	if cfg.Transcription.MaxDuration <= 0 {
		cfg.Transcription.MaxDuration = 20 * time.Minute
	}
	if cfg.Transcription.ChunkDuration <= 0 {
		cfg.Transcription.ChunkDuration = 10 * time.Minute
	}
	if cfg.Transcription.ConcurrentLimit <= 0 {
		cfg.Transcription.ConcurrentLimit = 4
	}
	if cfg.Credits.CostPerJob <= 0 {
		cfg.Credits.CostPerJob = 10
	}
	if cfg.Credits.SubmitRatePerMin <= 0 {
		cfg.Credits.SubmitRatePerMin = 10
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Scraper.Token == "" {
		return nil, errors.New("scraper.token is required")
	}
	if cfg.API.JWTSecret == "" && !dev {
		return nil, errors.New("api.jwt_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
