// Package config provides configuration loading for the pipeline worker.
package config

import (
	"os"
	"strconv"
)

// WorkerConfig holds Temporal worker configuration.
type WorkerConfig struct {
	TemporalAddress   string
	TemporalNamespace string
	TaskQueue         string
}

// LoadWorkerConfig loads worker configuration from environment.
func LoadWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		TemporalAddress:   getEnv("TEMPORAL_ADDRESS", "127.0.0.1:7233"),
		TemporalNamespace: getEnv("TEMPORAL_NAMESPACE", "default"),
		TaskQueue:         getEnv("ORDERFLOW_TASK_QUEUE", "orderflow"),
	}
}

// PipelineConfig holds the per-run pipeline settings: dataset identity,
// provider credential, store DSNs, and the optional raw-archive mirror.
type PipelineConfig struct {
	// Dataset settings
	Dataset     string
	DownloadDir string

	// Kaggle credential (never embedded in code)
	KaggleBaseURL  string
	KaggleUsername string
	KaggleKey      string

	// Staging store (MySQL)
	StagingDSN   string
	StagingTable string

	// Destination store (PostgreSQL)
	DestinationDSN   string
	DestinationTable string

	// Optional cleaning-rule override file
	RulesPath string

	// Optional raw archive mirror (MinIO/S3)
	ArchiveEndpoint  string
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveBucket    string
	ArchiveUseSSL    bool
}

// LoadPipelineConfig loads pipeline configuration from environment.
func LoadPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Dataset:     getEnv("ORDERFLOW_DATASET", "ayushparwal2026/online-ecommerce"),
		DownloadDir: getEnv("ORDERFLOW_DOWNLOAD_DIR", "data/online-ecommerce"),

		KaggleBaseURL:  getEnv("KAGGLE_BASE_URL", "https://www.kaggle.com"),
		KaggleUsername: getEnv("KAGGLE_USERNAME", ""),
		KaggleKey:      getEnv("KAGGLE_KEY", ""),

		StagingDSN:   getEnv("ORDERFLOW_STAGING_DSN", ""),
		StagingTable: getEnv("ORDERFLOW_STAGING_TABLE", "orders_staging"),

		DestinationDSN:   getEnv("ORDERFLOW_DESTINATION_DSN", ""),
		DestinationTable: getEnv("ORDERFLOW_DESTINATION_TABLE", "online_orders"),

		RulesPath: getEnv("ORDERFLOW_RULES_PATH", ""),

		ArchiveEndpoint:  getEnv("ORDERFLOW_ARCHIVE_ENDPOINT", ""),
		ArchiveAccessKey: getEnv("ORDERFLOW_ARCHIVE_ACCESS_KEY", ""),
		ArchiveSecretKey: getEnv("ORDERFLOW_ARCHIVE_SECRET_KEY", ""),
		ArchiveBucket:    getEnv("ORDERFLOW_ARCHIVE_BUCKET", "orderflow-raw"),
		ArchiveUseSSL:    getEnvBool("ORDERFLOW_ARCHIVE_USE_SSL", false),
	}
}

// ArchiveEnabled reports whether the raw archive mirror is configured.
func (c *PipelineConfig) ArchiveEnabled() bool {
	return c.ArchiveEndpoint != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
