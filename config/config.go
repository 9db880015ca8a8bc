package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL        string
	GameServiceToken   string
	AllowedOrigins     string
	Port               string
	RedisAddr          string
	R2                 R2Config
	SessionIdleTimeout time.Duration
	LeaderboardEvery   time.Duration
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// Enabled reports whether enough R2 settings are present to sign photo URLs.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// Load reads .env (if any) and the process environment. Missing required
// variables are fatal.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := Config{
		DatabaseURL:        mustEnv("DATABASE_URL"),
		GameServiceToken:   mustEnv("GAME_SERVICE_TOKEN"),
		AllowedOrigins:     normalizeOrigins(envOr("ALLOWED_ORIGINS", "http://localhost:3000")),
		Port:               envOr("PORT", "5200"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		SessionIdleTimeout: durationOr("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		LeaderboardEvery:   durationOr("LEADERBOARD_REFRESH_INTERVAL", time.Minute),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
		},
	}
	return cfg
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("%s environment variable not set", key)
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	log.Printf("⚠️  %s not set, using default: %s", key, fallback)
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("⚠️  invalid %s=%q, using default: %s", key, raw, fallback)
		return fallback
	}
	return d
}

// normalizeOrigins trims spaces around each comma-separated origin
func normalizeOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	for i, origin := range parts {
		parts[i] = strings.TrimSpace(origin)
	}
	return strings.Join(parts, ",")
}
