// Package config loads the service configuration from the environment
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment environment the service runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short and long spellings of each environment
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	default:
		return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
	}
}

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes, also bounds POST /parse
	MaxHeaderSize     int64 // Maximum header size in bytes

	DataDir             string        // Directory scanned for SPL XML files and zip archives
	ArchiveURL          string        // Optional zip archive downloaded into DataDir before each scan
	ScanInterval        time.Duration // Interval between two ingestion runs
	IngestWorkers       int           // Concurrent parse workers during ingestion
	WatchDataDir        bool          // Parse files as soon as they appear in DataDir
	MaxSectionDepth     int           // Subsection recursion limit
	SubstanceCacheTTL   time.Duration // Lifetime of substance code to name entries
	StrictIdentity      bool          // Treat missing setId/versionNumber as fatal
	ParseTimeoutSeconds int           // Upper bound for a single parse during ingestion
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 10485760),   // 10MB default, labels are large
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		DataDir:             getEnvWithDefault("SPL_DATA_DIR", "data/spl"),
		ArchiveURL:          os.Getenv("SPL_ARCHIVE_URL"),
		ScanInterval:        time.Duration(getIntEnvWithDefault("SCAN_INTERVAL_MINUTES", 60)) * time.Minute,
		IngestWorkers:       getIntEnvWithDefault("INGEST_WORKERS", 4),
		WatchDataDir:        getBoolEnvWithDefault("WATCH_DATA_DIR", false),
		MaxSectionDepth:     getIntEnvWithDefault("MAX_SECTION_DEPTH", 64),
		SubstanceCacheTTL:   time.Duration(getIntEnvWithDefault("SUBSTANCE_CACHE_TTL_MINUTES", 60)) * time.Minute,
		StrictIdentity:      getBoolEnvWithDefault("STRICT_IDENTITY", false),
		ParseTimeoutSeconds: getIntEnvWithDefault("PARSE_TIMEOUT_SECONDS", 30),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateRange(cfg.LogRetentionWeeks, 1, 52, "LOG_RETENTION_WEEKS"); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("invalid SPL_DATA_DIR: directory cannot be empty")
	}

	if cfg.ArchiveURL != "" && !strings.HasPrefix(cfg.ArchiveURL, "https://") && !strings.HasPrefix(cfg.ArchiveURL, "http://") {
		return fmt.Errorf("invalid SPL_ARCHIVE_URL: must be an http(s) URL, got: %s", cfg.ArchiveURL)
	}

	if err := validateRange(int(cfg.ScanInterval/time.Minute), 1, 7*24*60, "SCAN_INTERVAL_MINUTES"); err != nil {
		return fmt.Errorf("invalid SCAN_INTERVAL_MINUTES: %w", err)
	}

	if err := validateRange(cfg.IngestWorkers, 1, 64, "INGEST_WORKERS"); err != nil {
		return fmt.Errorf("invalid INGEST_WORKERS: %w", err)
	}

	if err := validateRange(cfg.MaxSectionDepth, 1, 1024, "MAX_SECTION_DEPTH"); err != nil {
		return fmt.Errorf("invalid MAX_SECTION_DEPTH: %w", err)
	}

	if err := validateRange(int(cfg.SubstanceCacheTTL/time.Minute), 1, 7*24*60, "SUBSTANCE_CACHE_TTL_MINUTES"); err != nil {
		return fmt.Errorf("invalid SUBSTANCE_CACHE_TTL_MINUTES: %w", err)
	}

	if err := validateRange(cfg.ParseTimeoutSeconds, 1, 600, "PARSE_TIMEOUT_SECONDS"); err != nil {
		return fmt.Errorf("invalid PARSE_TIMEOUT_SECONDS: %w", err)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateRange checks that an integer setting lies within [lo, hi]
func validateRange(value, lo, hi int, configName string) error {
	if value < lo {
		return fmt.Errorf("%s must be at least %d, got: %d", configName, lo, value)
	}
	if value > hi {
		return fmt.Errorf("%s is too large (max %d), got: %d", configName, hi, value)
	}
	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnvWithDefault gets an environment variable as bool with a default value
func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"SPL_DATA_DIR",
		"SPL_ARCHIVE_URL",
		"SCAN_INTERVAL_MINUTES",
		"INGEST_WORKERS",
		"WATCH_DATA_DIR",
		"MAX_SECTION_DEPTH",
		"SUBSTANCE_CACHE_TTL_MINUTES",
		"STRICT_IDENTITY",
		"PARSE_TIMEOUT_SECONDS",
	}
}
