package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	LogLevel           string
	LogFormat          string
	Port               string
	ModelPath          string
	TrainDataPath      string
	ValidationDataPath string
	ReportPath         string
	TrainingConfigPath string
	MetadataDBPath     string
	PredictionTable    string
	BatchWorkers       int
	ValidationSchedule string
	RetrainThreshold   float64
	Postgres           PostgresConfig
}

// PostgresConfig holds the prediction log connection settings
type PostgresConfig struct {
	Host     string
	DB       string
	User     string
	Password string
	Port     int
	SSLMode  string
}

// Enabled reports whether a Postgres host was configured
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// DSN returns a lib/pq connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DB, p.SSLMode)
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		Port:               getEnv("PORT", "8000"),
		ModelPath:          getEnv("MODEL_PATH", "models/best_model.gob"),
		TrainDataPath:      getEnv("TRAIN_DATA_PATH", "data/train.csv"),
		ValidationDataPath: getEnv("VALIDATION_DATA_PATH", "data/validation.csv"),
		ReportPath:         getEnv("REPORT_PATH", "reports/validation_report.md"),
		TrainingConfigPath: getEnv("TRAINING_CONFIG", "configs/training.yaml"),
		MetadataDBPath:     getEnv("METADATA_DB_PATH", "data/metadata.db"),
		PredictionTable:    getEnv("PREDICTION_TABLE", "titanic"),
		BatchWorkers:       getEnvAsInt("BATCH_WORKERS", 4),
		ValidationSchedule: getEnv("VALIDATION_SCHEDULE", ""),
		RetrainThreshold:   getEnvAsFloat("RETRAIN_THRESHOLD", 0.8),
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", ""),
			DB:       getEnv("POSTGRES_DB", "titanic"),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
	}

	// Validate configuration
	if _, err := strconv.Atoi(config.Port); err != nil {
		return nil, fmt.Errorf("PORT must be numeric, got %q", config.Port)
	}
	if config.BatchWorkers < 1 {
		return nil, fmt.Errorf("BATCH_WORKERS must be at least 1, got %d", config.BatchWorkers)
	}
	if config.RetrainThreshold < 0 || config.RetrainThreshold > 1 {
		return nil, fmt.Errorf("RETRAIN_THRESHOLD must be between 0 and 1, got %v", config.RetrainThreshold)
	}
	if config.PredictionTable == "" {
		return nil, fmt.Errorf("PREDICTION_TABLE must not be empty")
	}

	return config, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
