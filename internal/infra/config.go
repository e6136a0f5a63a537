package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	DBMaxConns  int

	LibraryPath string
	TempPath    string
	BackupPath  string

	QueueWorkers int

	IMVDbAPIKey        string
	IMVDbBaseURL       string
	IMVDbPerMinute     int
	IMVDbBurst         int
	IMVDbMaxConcurrent int
	IMVDbCacheTTL      time.Duration

	YTDLPPath          string
	YTDLPPerMinute     int
	YTDLPMaxConcurrent int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),

		LibraryPath: getEnv("LIBRARY_PATH", "./library"),
		TempPath:    getEnv("TEMP_PATH", "./tmp"),
		BackupPath:  getEnv("BACKUP_PATH", "./backups"),

		QueueWorkers: getEnvInt("QUEUE_WORKERS", 4),

		IMVDbAPIKey:        os.Getenv("IMVDB_API_KEY"),
		IMVDbBaseURL:       getEnv("IMVDB_BASE_URL", "https://imvdb.com/api/v1"),
		IMVDbPerMinute:     getEnvInt("IMVDB_RATE_PER_MINUTE", 60),
		IMVDbBurst:         getEnvInt("IMVDB_BURST", 10),
		IMVDbMaxConcurrent: getEnvInt("IMVDB_MAX_CONCURRENT", 4),
		IMVDbCacheTTL:      time.Minute * time.Duration(getEnvInt("IMVDB_CACHE_TTL_MINUTES", 60)),

		YTDLPPath:          getEnv("YTDLP_PATH", "yt-dlp"),
		YTDLPPerMinute:     getEnvInt("YTDLP_RATE_PER_MINUTE", 30),
		YTDLPMaxConcurrent: getEnvInt("YTDLP_MAX_CONCURRENT", 2),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.QueueWorkers < 1 {
		cfg.QueueWorkers = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
