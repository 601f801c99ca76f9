package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Storage   StorageConfig
	Extractor ExtractorConfig
	Pipeline  PipelineConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StorageConfig holds S3-compatible object storage settings.
type StorageConfig struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
}

// MaxFileSizeBytes returns the upload size cap in bytes.
func (s *StorageConfig) MaxFileSizeBytes() int64 {
	return s.MaxFileSizeMB * 1024 * 1024
}

// ExtractorConfig holds hosted vision-model settings.
type ExtractorConfig struct {
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	Endpoint    string `mapstructure:"endpoint"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// PipelineConfig holds document processing settings.
type PipelineConfig struct {
	DefaultDPI             int     `mapstructure:"default_dpi"`
	HighDPI                int     `mapstructure:"high_dpi"`
	LowConfidenceThreshold float64 `mapstructure:"low_confidence_threshold"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the PATRO_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PATRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "patro")
	v.SetDefault("db.password", "patro_secret")
	v.SetDefault("db.name", "patro_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Storage defaults
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "patro-uploads")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.max_file_size_mb", 50)

	// Extractor defaults
	v.SetDefault("extractor.api_key", "")
	v.SetDefault("extractor.model", "gpt-4o")
	v.SetDefault("extractor.endpoint", "")
	v.SetDefault("extractor.timeout_secs", 120)

	// Pipeline defaults
	v.SetDefault("pipeline.default_dpi", 150)
	v.SetDefault("pipeline.high_dpi", 300)
	v.SetDefault("pipeline.low_confidence_threshold", 0.7)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                       "PATRO_SERVER_PORT",
		"server.read_timeout":               "PATRO_SERVER_READ_TIMEOUT",
		"server.write_timeout":              "PATRO_SERVER_WRITE_TIMEOUT",
		"server.environment":                "PATRO_SERVER_ENVIRONMENT",
		"db.host":                           "PATRO_DB_HOST",
		"db.port":                           "PATRO_DB_PORT",
		"db.user":                           "PATRO_DB_USER",
		"db.password":                       "PATRO_DB_PASSWORD",
		"db.name":                           "PATRO_DB_NAME",
		"db.sslmode":                        "PATRO_DB_SSLMODE",
		"db.max_open":                       "PATRO_DB_MAX_OPEN",
		"db.max_idle":                       "PATRO_DB_MAX_IDLE",
		"storage.region":                    "PATRO_STORAGE_REGION",
		"storage.bucket":                    "PATRO_STORAGE_BUCKET",
		"storage.endpoint":                  "PATRO_STORAGE_ENDPOINT",
		"storage.access_key":                "PATRO_STORAGE_ACCESS_KEY",
		"storage.secret_key":                "PATRO_STORAGE_SECRET_KEY",
		"storage.max_file_size_mb":          "PATRO_STORAGE_MAX_FILE_SIZE_MB",
		"extractor.api_key":                 "PATRO_EXTRACTOR_API_KEY",
		"extractor.model":                   "PATRO_EXTRACTOR_MODEL",
		"extractor.endpoint":                "PATRO_EXTRACTOR_ENDPOINT",
		"extractor.timeout_secs":            "PATRO_EXTRACTOR_TIMEOUT_SECS",
		"pipeline.default_dpi":              "PATRO_PIPELINE_DEFAULT_DPI",
		"pipeline.high_dpi":                 "PATRO_PIPELINE_HIGH_DPI",
		"pipeline.low_confidence_threshold": "PATRO_PIPELINE_LOW_CONFIDENCE_THRESHOLD",
		"log.level":                         "PATRO_LOG_LEVEL",
		"log.format":                        "PATRO_LOG_FORMAT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if PATRO_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PATRO_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Storage = StorageConfig{
		Region:        v.GetString("storage.region"),
		Bucket:        v.GetString("storage.bucket"),
		Endpoint:      v.GetString("storage.endpoint"),
		AccessKey:     v.GetString("storage.access_key"),
		SecretKey:     v.GetString("storage.secret_key"),
		MaxFileSizeMB: v.GetInt64("storage.max_file_size_mb"),
	}
	cfg.Extractor = ExtractorConfig{
		APIKey:      v.GetString("extractor.api_key"),
		Model:       v.GetString("extractor.model"),
		Endpoint:    v.GetString("extractor.endpoint"),
		TimeoutSecs: v.GetInt("extractor.timeout_secs"),
	}
	cfg.Pipeline = PipelineConfig{
		DefaultDPI:             v.GetInt("pipeline.default_dpi"),
		HighDPI:                v.GetInt("pipeline.high_dpi"),
		LowConfidenceThreshold: v.GetFloat64("pipeline.low_confidence_threshold"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	return cfg, nil
}
