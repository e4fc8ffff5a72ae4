package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// リサーチソースの種別。
const (
	ResearchSourceGemini = "gemini"
	ResearchSourceFeed   = "feed"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Gemini
	GeminiAPIKey  string
	GeminiTimeout time.Duration

	// Database（未設定の場合はメモリ＋JSONファイルで動作する）
	DatabaseURL string

	// Settings
	SettingsFile string

	// Research
	ResearchSource    string
	ResearchFeedURL   string
	ResearchBatchSize int

	// Publish
	PublishTimeout  time.Duration
	PublishInterval time.Duration

	// AutoPost
	AutoPostInterval time.Duration

	// Rate Limit
	RateLimitGeneral  int
	RateLimitResearch int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GeminiTimeout = getEnvDuration("GEMINI_TIMEOUT", 120*time.Second)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SettingsFile = getEnvString("SETTINGS_FILE", "data/settings.json")
	cfg.ResearchSource = getEnvString("RESEARCH_SOURCE", ResearchSourceGemini)
	cfg.ResearchFeedURL = getEnvString("RESEARCH_FEED_URL", "")
	cfg.ResearchBatchSize = getEnvInt("RESEARCH_BATCH_SIZE", 12)
	cfg.PublishTimeout = getEnvDuration("PUBLISH_TIMEOUT", 30*time.Second)
	cfg.PublishInterval = getEnvDuration("PUBLISH_INTERVAL", 2*time.Second)
	cfg.AutoPostInterval = getEnvDuration("AUTOPOST_INTERVAL", 5*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitResearch = getEnvInt("RATE_LIMIT_RESEARCH", 5)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.ResearchSource != ResearchSourceGemini && cfg.ResearchSource != ResearchSourceFeed {
		return nil, fmt.Errorf("invalid RESEARCH_SOURCE: %s", cfg.ResearchSource)
	}
	if cfg.ResearchSource == ResearchSourceFeed && cfg.ResearchFeedURL == "" {
		return nil, fmt.Errorf("RESEARCH_FEED_URL is required when RESEARCH_SOURCE=feed")
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
