package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort            string
	ServiceApiPort     string
	CORSAllowedOrigins []string // empty allows any origin

	// Upstream marketplace API
	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	FeedPageSize    int
	NearbyRadiusKM  int

	// Client state
	FeedStateTTL             time.Duration
	FeedLockTTL              time.Duration
	ConversationSyncMaxPages int

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageMaxDimension  int
	ImageMaxSizeMB     int

	// Logging
	LogLevel string
	LogDev   bool

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// MinFeedLockTTL is the shortest loading flag that outlives one feed
// advance. An empty nearby page falls through to all mode, so one advance
// can make two upstream requests back to back.
func MinFeedLockTTL(upstreamTimeout time.Duration) time.Duration {
	return 2*upstreamTimeout + 5*time.Second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		seconds, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "estatehub_gateway")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.UpstreamBaseURL, err = getRequiredEnv("UPSTREAM_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.UpstreamBaseURL = strings.TrimRight(cfg.UpstreamBaseURL, "/")
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	for _, origin := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", ""), ",") {
		if origin = strings.TrimSpace(origin); origin != "" && origin != "*" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, strings.TrimRight(origin, "/"))
		}
	}
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogDev = getEnv("LOG_DEV", "false") == "true"

	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.JwtTTL, err = getSeconds("JWT_TTL_SECONDS", "3600"); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getSeconds("UPSTREAM_TIMEOUT_SECONDS", "15"); err != nil {
		return nil, err
	}
	if cfg.FeedPageSize, err = getInt("FEED_PAGE_SIZE", "20"); err != nil {
		return nil, err
	}
	if cfg.NearbyRadiusKM, err = getInt("NEARBY_RADIUS_KM", "25"); err != nil {
		return nil, err
	}
	if cfg.FeedStateTTL, err = getSeconds("FEED_STATE_TTL_SECONDS", "86400"); err != nil {
		return nil, err
	}
	if cfg.FeedLockTTL, err = getSeconds("FEED_LOCK_TTL_SECONDS", "30"); err != nil {
		return nil, err
	}
	if floor := MinFeedLockTTL(cfg.UpstreamTimeout); cfg.FeedLockTTL < floor {
		cfg.FeedLockTTL = floor
	}
	if cfg.ConversationSyncMaxPages, err = getInt("CONVERSATION_SYNC_MAX_PAGES", "10"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxDimension, err = getInt("IMAGE_MAX_DIMENSION", "2048"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxSizeMB, err = getInt("IMAGE_MAX_SIZE_MB", "10"); err != nil {
		return nil, err
	}

	// Rate Limiting
	if cfg.RateLimitSoftBucketSize, err = getInt("RATE_LIMIT_SOFT_BUCKET_SIZE", "10"); err != nil {
		return nil, err
	}
	if cfg.RateLimitSoftRefillRate, err = getInt("RATE_LIMIT_SOFT_REFILL_RATE", "5"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardBucketSize, err = getInt("RATE_LIMIT_HARD_BUCKET_SIZE", "30"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardRefillRate, err = getInt("RATE_LIMIT_HARD_REFILL_RATE", "15"); err != nil {
		return nil, err
	}

	return cfg, nil
}
