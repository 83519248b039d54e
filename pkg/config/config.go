package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Upstream UpstreamConfig
	Cache    CacheConfig
	Frost    FrostConfig
	Journal  JournalConfig
	Kafka    KafkaConfig
	Sync     SyncConfig
}

type UpstreamConfig struct {
	CatalogURL       string
	DownloadURL      string
	CatalogBatchSize int
	HTTPTimeout      time.Duration
}

type CacheConfig struct {
	// Backend selects the response-cache store: "sqlite" or "redis".
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type FrostConfig struct {
	// BackendURL is the SensorThings store root; AdminURL is the serving
	// API configuration endpoint used by publish/delete.
	BackendURL string
	AdminURL   string
}

type JournalConfig struct {
	// DSN enables the Postgres run journal when non-empty.
	DSN string
}

type KafkaConfig struct {
	// Brokers enables run-event publishing when non-empty.
	Brokers []string
	Topic   string
}

type SyncConfig struct {
	StationWorkers    int
	StreamConcurrency int
	WatermarkPath     string
	WatchInterval     time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Upstream: UpstreamConfig{
			CatalogURL:       getEnv("UPSTREAM_CATALOG_URL", "https://gis.wrd.state.or.us/server/rest/services/dynamic/Gaging_Stations_WGS84/FeatureServer/2/query"),
			DownloadURL:      getEnv("UPSTREAM_DOWNLOAD_URL", "https://apps.wrd.state.or.us/apps/sw/hydro_near_real_time/hydro_download.aspx"),
			CatalogBatchSize: getEnvAsInt("UPSTREAM_CATALOG_BATCH_SIZE", 70),
			HTTPTimeout:      getEnvAsDuration("UPSTREAM_HTTP_TIMEOUT", 60*time.Second),
		},
		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", "sqlite"),
			Path:          getEnv("CACHE_PATH", "hydrosync_cache.db"),
			RedisAddr:     getEnv("CACHE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("CACHE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("CACHE_REDIS_DB", 0),
		},
		Frost: FrostConfig{
			BackendURL: getEnv("FROST_BACKEND_URL", "http://localhost:8080/FROST-Server/v1.1"),
			AdminURL:   getEnv("API_ADMIN_URL", "http://localhost:8999/oapi"),
		},
		Journal: JournalConfig{
			DSN: getEnv("JOURNAL_DSN", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC_RUNS", "hydro.sync.runs"),
		},
		Sync: SyncConfig{
			StationWorkers:    getEnvAsInt("SYNC_STATION_WORKERS", 4),
			StreamConcurrency: getEnvAsInt("SYNC_STREAM_CONCURRENCY", 4),
			WatermarkPath:     getEnv("SYNC_WATERMARK_PATH", "hydrosync_watermark.json"),
			WatchInterval:     getEnvAsDuration("SYNC_WATCH_INTERVAL", 6*time.Hour),
		},
	}

	return config, nil
}

func splitNonEmpty(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
