package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything tunable from the environment. All timeouts of
// the matching core live here so tests can shrink them.
type Config struct {
	HTTPAddr string

	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTTTL    time.Duration

	// Presence
	PresenceStaleAfter time.Duration // entries older than this are evicted

	// Matchmaking
	MatchSweepInterval time.Duration // periodic retry of the waiting pool
	MatchTimeout       time.Duration // waiting -> failed after this

	// Sessions
	ConnectTimeout time.Duration // signaling -> failed if not connected

	// Monetization
	GenderFilterPrice int           // coins debited per filtered match request
	PremiumPeriod     time.Duration // granted per verified premium purchase

	LocalesPath string
}

// Load reads configuration from the environment (.env if present).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		PostgresDSN:   getEnv("POSTGRES_DSN", "host=localhost user=user password=password dbname=vibelinkdb port=5432 sslmode=disable"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getDuration("JWT_TTL", 72*time.Hour),

		PresenceStaleAfter: getDuration("PRESENCE_STALE_AFTER", 30*time.Second),
		MatchSweepInterval: getDuration("MATCH_SWEEP_INTERVAL", 3*time.Second),
		MatchTimeout:       getDuration("MATCH_TIMEOUT", 60*time.Second),
		ConnectTimeout:     getDuration("CONNECT_TIMEOUT", 15*time.Second),

		GenderFilterPrice: getInt("GENDER_FILTER_PRICE", 20),
		PremiumPeriod:     getDuration("PREMIUM_PERIOD", 30*24*time.Hour),

		LocalesPath: getEnv("LOCALES_PATH", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
