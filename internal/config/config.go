package config

import (
	"os"
	"strconv"
	"time"

	"debias/domain/audit"
	"debias/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Detection DetectionConfig
	Correct   CorrectionConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	OpsPort string
	GinMode string
}

// StorageConfig holds dataset storage settings
type StorageConfig struct {
	UploadDir    string
	CorrectedDir string
	MaxFileSize  int64
}

// DatabaseConfig holds optional persistence settings. When URL is empty the
// engine runs with in-memory repositories.
type DatabaseConfig struct {
	URL string
}

// DetectionConfig holds the versioned statistical cutoffs. The severity
// thresholds are a contract with callers; changing them changes every
// diagnostic the engine emits.
type DetectionConfig struct {
	Severity audit.SeverityThresholds
	// MinSkewSamples is the smallest non-null sample a skewness estimate
	// is computed from.
	MinSkewSamples int
}

// CorrectionConfig holds correction engine settings
type CorrectionConfig struct {
	JobTimeout time.Duration
	// Seed drives the resampling and SMOTE RNGs so corrections are
	// reproducible across identical requests.
	Seed int64
	// SMOTENeighbors is the k used for synthetic sample interpolation.
	SMOTENeighbors int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			OpsPort: getEnvOrDefault("OPS_PORT", "8081"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Storage: StorageConfig{
			UploadDir:    getEnvOrDefault("UPLOAD_DIR", "uploads"),
			CorrectedDir: getEnvOrDefault("CORRECTED_DIR", "corrected"),
			MaxFileSize:  getEnvInt64OrDefault("MAX_FILE_SIZE", 50*1024*1024),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Detection: DetectionConfig{
			Severity: audit.SeverityThresholds{
				Low:      getEnvFloatOrDefault("SEVERITY_LOW_RATIO", audit.DefaultSeverityThresholds().Low),
				Moderate: getEnvFloatOrDefault("SEVERITY_MODERATE_RATIO", audit.DefaultSeverityThresholds().Moderate),
			},
			MinSkewSamples: getEnvIntOrDefault("MIN_SKEW_SAMPLES", 3),
		},
		Correct: CorrectionConfig{
			JobTimeout:     getEnvDurationOrDefault("JOB_TIMEOUT", 2*time.Minute),
			Seed:           getEnvInt64OrDefault("CORRECTION_SEED", 42),
			SMOTENeighbors: getEnvIntOrDefault("SMOTE_NEIGHBORS", 5),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Storage.UploadDir == "" {
		return errors.ConfigInvalid("upload directory is required")
	}
	if config.Storage.CorrectedDir == "" {
		return errors.ConfigInvalid("corrected directory is required")
	}
	if !config.Detection.Severity.Valid() {
		return errors.ConfigInvalid("severity thresholds must satisfy 0 < moderate < low <= 1")
	}
	if config.Detection.MinSkewSamples < 3 {
		return errors.ConfigInvalid("MIN_SKEW_SAMPLES must be at least 3")
	}
	if config.Correct.SMOTENeighbors < 1 {
		return errors.ConfigInvalid("SMOTE_NEIGHBORS must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
