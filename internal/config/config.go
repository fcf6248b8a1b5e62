package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Paths     PathsConfig     `json:"paths"`
	Commerce  CommerceConfig  `json:"commerce"`
	Azure     AzureConfig     `json:"azure"`
	Logging   LoggingConfig   `json:"logging"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Timeout   time.Duration   `json:"timeout"`
}

// PathsConfig locates the datapack inputs and the service data output.
// Relative paths resolve against Root.
type PathsConfig struct {
	Root           string `json:"root"`
	DataDir        string `json:"data_dir"`
	OutputDir      string `json:"output_dir"`
	StoresFile     string `json:"stores_file"`
	ServiceDataDir string `json:"service_data_dir"`
}

type CommerceConfig struct {
	BaseURL    string        `json:"base_url"`
	Token      string        `json:"-"`
	RetryMax   int           `json:"retry_max"`
	Timeout    time.Duration `json:"timeout"`
	HTTPClient *http.Client  `json:"-"`
}

type AzureConfig struct {
	AccountName      string `json:"account_name"`
	AccountKey       string `json:"-"`
	ServiceContainer string `json:"service_container"`
	ServicePrefix    string `json:"service_prefix"`
	LogContainer     string `json:"log_container"`
	LogBlob          string `json:"log_blob"`
}

type LoggingConfig struct {
	Level slog.Level `json:"level"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `json:"otlp_endpoint"`
	ServiceName  string `json:"service_name"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	level, err := parseLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	retryMax, err := getEnvInt("COMMERCE_RETRY_MAX", 0)
	if err != nil {
		return nil, err
	}
	commerceTimeout, err := getEnvDuration("COMMERCE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvDuration("DATAPACK_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	root := getEnvOrDefault("DATAPACK_ROOT", ".")
	cfg := &Config{
		Paths: PathsConfig{
			Root:           root,
			DataDir:        resolve(root, getEnvOrDefault("DATAPACK_DATA_DIR", filepath.Join("data", "buildright"))),
			OutputDir:      resolve(root, getEnvOrDefault("DATAPACK_OUTPUT_DIR", filepath.Join("output", "buildright"))),
			StoresFile:     resolve(root, getEnvOrDefault("DATAPACK_STORES_FILE", filepath.Join("output", "buildright-datapack", "data", "accs", "accs_stores.json"))),
			ServiceDataDir: resolve(root, getEnvOrDefault("SERVICE_DATA_DIR", filepath.Join("service", "data"))),
		},
		Commerce: CommerceConfig{
			BaseURL:  strings.TrimSpace(os.Getenv("COMMERCE_BASE_URL")),
			Token:    strings.TrimSpace(os.Getenv("COMMERCE_TOKEN")),
			RetryMax: retryMax,
			Timeout:  commerceTimeout,
		},
		Azure: AzureConfig{
			AccountName:      os.Getenv("AZURE_STORAGE_ACCOUNT_NAME"),
			AccountKey:       os.Getenv("AZURE_STORAGE_PRIMARY_ACCOUNT_KEY"),
			ServiceContainer: getEnvOrDefault("SERVICE_DATA_CONTAINER", "servicedata"),
			ServicePrefix:    os.Getenv("SERVICE_DATA_PREFIX"),
			LogContainer:     os.Getenv("LOG_BLOB_CONTAINER"),
			LogBlob:          os.Getenv("LOG_BLOB_NAME"),
		},
		Logging: LoggingConfig{
			Level: level,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", "datapack"),
		},
		Timeout: timeout,
	}

	return cfg, nil
}

// Validate checks the settings the store importer cannot run without.
func (c CommerceConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("COMMERCE_BASE_URL must be set")
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("COMMERCE_RETRY_MAX must not be negative, got %d", c.RetryMax)
	}
	return nil
}

// BlobEnabled reports whether an Azure storage account is configured. Without an account
// key the default Azure credential chain is used.
func (a AzureConfig) BlobEnabled() bool {
	return a.AccountName != ""
}

// LogSinkEnabled reports whether logs should also be mirrored to an append blob.
func (a AzureConfig) LogSinkEnabled() bool {
	return a.BlobEnabled() && a.LogContainer != ""
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
