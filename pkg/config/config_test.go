package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Index.SampleSize != 500000 {
		t.Errorf("Index.SampleSize = %d, want 500000", cfg.Index.SampleSize)
	}
	if cfg.Query.DefaultLimit != 20 || cfg.Query.MaxResults != 1000 {
		t.Errorf("Query = %+v", cfg.Query)
	}
	if cfg.Dataset.TripsTable != "trips_enriched" || cfg.Dataset.ZonesTable != "taxi_zones" {
		t.Errorf("Dataset = %+v", cfg.Dataset)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: 9999\nindex:\n  sampleSize: 1000\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Index.SampleSize != 1000 {
		t.Errorf("Index.SampleSize = %d, want 1000", cfg.Index.SampleSize)
	}
	// Untouched sections keep their defaults.
	if cfg.Redis.CacheTTL != 60*time.Second {
		t.Errorf("Redis.CacheTTL = %v, want 60s", cfg.Redis.CacheTTL)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load must fail for a missing explicit path")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TA_SERVER_PORT", "7070")
	t.Setenv("TA_POSTGRES_HOST", "db.internal")
	t.Setenv("TA_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TA_INDEX_SAMPLE_SIZE", "2500")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("Postgres.Host = %q", cfg.Postgres.Host)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Index.SampleSize != 2500 {
		t.Errorf("Index.SampleSize = %d, want 2500", cfg.Index.SampleSize)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "localhost", Port: 5432, Database: "trips",
		User: "svc", Password: "secret", SSLMode: "disable",
	}
	dsn := cfg.DSN()
	for _, part := range []string{"host=localhost", "port=5432", "dbname=trips", "user=svc", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN missing %q: %s", part, dsn)
		}
	}
}
