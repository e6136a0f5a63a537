package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig succeeded without DATABASE_URL, want error")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("LIBRARY_PATH", "")
	t.Setenv("IMVDB_RATE_PER_MINUTE", "")
	t.Setenv("IMVDB_CACHE_TTL_MINUTES", "")
	t.Setenv("QUEUE_WORKERS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.LibraryPath != "./library" {
		t.Fatalf("LibraryPath = %q, want ./library", cfg.LibraryPath)
	}
	if cfg.IMVDbPerMinute != 60 {
		t.Fatalf("IMVDbPerMinute = %d, want 60", cfg.IMVDbPerMinute)
	}
	if cfg.IMVDbCacheTTL != time.Hour {
		t.Fatalf("IMVDbCacheTTL = %v, want 1h", cfg.IMVDbCacheTTL)
	}
	if cfg.QueueWorkers != 4 {
		t.Fatalf("QueueWorkers = %d, want 4", cfg.QueueWorkers)
	}
	if cfg.DBMaxConns != 10 {
		t.Fatalf("DBMaxConns = %d, want 10", cfg.DBMaxConns)
	}
}

func TestLoadConfigHonorsOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("QUEUE_WORKERS", "0")
	t.Setenv("YTDLP_MAX_CONCURRENT", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.QueueWorkers != 1 {
		t.Fatalf("QueueWorkers = %d, want clamp to 1", cfg.QueueWorkers)
	}
	if cfg.YTDLPMaxConcurrent != 5 {
		t.Fatalf("YTDLPMaxConcurrent = %d, want 5", cfg.YTDLPMaxConcurrent)
	}
}
