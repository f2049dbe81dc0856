package config

import (
	"os"
	"strconv"
	"time"

	apperrors "sjsage522/carlistingworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// HTTP trigger surface
	ListenAddr string

	// WordPress store configuration
	StoreBaseURL     string
	StoreUsername    string
	StoreAppPassword string

	// Redis configuration (optional record stream)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration (trigger cooldown)
	MemcacheAddr   string
	ScrapeCooldown time.Duration

	// Scraper configuration
	SearchBaseURL   string
	MaxWorkers      int
	AcquireTimeout  time.Duration
	TaskTimeout     time.Duration
	PageLoadTimeout time.Duration
	Headless        bool

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	maxWorkers, _ := strconv.Atoi(getEnv("SCRAPER_MAX_WORKERS", "4"))
	acquireTimeout, _ := strconv.Atoi(getEnv("SESSION_ACQUIRE_TIMEOUT_SECONDS", "10"))
	taskTimeout, _ := strconv.Atoi(getEnv("TASK_TIMEOUT_SECONDS", "60"))
	pageLoadTimeout, _ := strconv.Atoi(getEnv("PAGE_LOAD_TIMEOUT_SECONDS", "30"))
	cooldown, _ := strconv.Atoi(getEnv("SCRAPE_COOLDOWN_SECONDS", "120"))
	headless, _ := strconv.ParseBool(getEnv("SCRAPER_HEADLESS", "true"))

	return Config{
		ListenAddr:           getEnv("LISTEN_ADDR", ":8000"),
		StoreBaseURL:         getEnv("WORDPRESS_URL", "https://onlineappflex.wpenginepowered.com"),
		StoreUsername:        getEnv("WORDPRESS_USERNAME", ""),
		StoreAppPassword:     getEnv("WORDPRESS_APP_PASSWORD", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "listings"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		ScrapeCooldown:       time.Duration(cooldown) * time.Second,
		SearchBaseURL:        getEnv("SEARCH_BASE_URL", "https://www.cars.com/shopping/results/"),
		MaxWorkers:           maxWorkers,
		AcquireTimeout:       time.Duration(acquireTimeout) * time.Second,
		TaskTimeout:          time.Duration(taskTimeout) * time.Second,
		PageLoadTimeout:      time.Duration(pageLoadTimeout) * time.Second,
		Headless:             headless,
		Environment:          getEnv("SCRAPER_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.StoreBaseURL == "" {
		return apperrors.NewConfiguration("WORDPRESS_URL must not be empty", nil)
	}
	if c.SearchBaseURL == "" {
		return apperrors.NewConfiguration("SEARCH_BASE_URL must not be empty", nil)
	}
	if c.MaxWorkers <= 0 {
		return apperrors.NewConfiguration("SCRAPER_MAX_WORKERS must be positive", nil)
	}
	if c.TaskTimeout <= 0 || c.AcquireTimeout <= 0 || c.PageLoadTimeout <= 0 {
		return apperrors.NewConfiguration("timeouts must be positive", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
