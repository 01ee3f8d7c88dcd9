// Copyright 2024 Atom Onboarding Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

const (
	// ProviderAuto picks Gemini, then OpenAI, by credential availability
	ProviderAuto = "auto"
	// ProviderGemini forces the Gemini backend
	ProviderGemini = "gemini"
	// ProviderOpenAI forces the OpenAI backend
	ProviderOpenAI = "openai"
)

// Config represents the complete application configuration
type Config struct {
	LLM             LLMConfig             `mapstructure:"llm"`
	OpenAI          OpenAIConfig          `mapstructure:"openai"`
	Gemini          GeminiConfig          `mapstructure:"gemini"`
	Flow            FlowConfig            `mapstructure:"flow"`
	Recommendations RecommendationsConfig `mapstructure:"recommendations"`
	Session         SessionConfig         `mapstructure:"session"`
	Server          ServerConfig          `mapstructure:"server"`
	Logging         LoggingConfig         `mapstructure:"logging"`
	Interactions    InteractionsConfig    `mapstructure:"interactions"`
}

// LLMConfig selects the provider and bounds every call
type LLMConfig struct {
	Provider              string        `mapstructure:"provider"`
	Model                 string        `mapstructure:"model"`
	DetailedModel         string        `mapstructure:"detailed_model"`
	QuestionTimeout       time.Duration `mapstructure:"question_timeout"`
	KeywordTimeout        time.Duration `mapstructure:"keyword_timeout"`
	RecommendationTimeout time.Duration `mapstructure:"recommendation_timeout"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey   string `mapstructure:"apikey"`
	Endpoint string `mapstructure:"endpoint"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey   string `mapstructure:"apikey"`
	Endpoint string `mapstructure:"endpoint"`
}

// FlowConfig contains onboarding flow settings
type FlowConfig struct {
	PatternsPath string `mapstructure:"patterns_path"`
}

// RecommendationsConfig contains recommendation engine settings
type RecommendationsConfig struct {
	DefaultCount int `mapstructure:"default_count"`
	MaxCount     int `mapstructure:"max_count"`
}

// SessionConfig contains session registry settings
type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxSessions     int           `mapstructure:"max_sessions"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// InteractionsConfig contains interaction log storage configuration
type InteractionsConfig struct {
	StorageType string `mapstructure:"storage_type"`
	FilePath    string `mapstructure:"file_path"`
	DBPath      string `mapstructure:"db_path"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	EnvFile          string
	EnableHotReload  bool
	Environment      string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over config file values.
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		EnvFile:          ".env",
		Environment:      getEnvironment(),
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ATOM")

	if err := v.ReadInConfig(); err != nil {
		// running on defaults and environment alone is fine
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// loadEnvFile loads a dotenv file without overriding variables already set
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.provider", ProviderAuto)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.detailed_model", "")
	v.SetDefault("llm.question_timeout", 5*time.Second)
	v.SetDefault("llm.keyword_timeout", 10*time.Second)
	v.SetDefault("llm.recommendation_timeout", 90*time.Second)

	// Provider defaults
	v.SetDefault("openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("gemini.endpoint", "")

	// Flow defaults
	v.SetDefault("flow.patterns_path", "./workflows/patterns.json")

	// Recommendation defaults
	v.SetDefault("recommendations.default_count", 3)
	v.SetDefault("recommendations.max_count", 10)

	// Session defaults
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.cleanup_interval", 5*time.Minute)
	v.SetDefault("session.max_sessions", 1000)

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "./logs/atom.log")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	// Interaction log defaults
	v.SetDefault("interactions.storage_type", "file")
	v.SetDefault("interactions.file_path", "./data/interactions.log")
	v.SetDefault("interactions.db_path", "./data/interactions.db")
}

// setConfigFile sets the configuration file path with fallback logic
func setConfigFile(v *viper.Viper, configPath string) error {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	return nil
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	envMappings := map[string]string{
		"GEMINI_API_KEY":       "gemini.apikey",
		"GEMINI_ENDPOINT":      "gemini.endpoint",
		"OPENAI_API_KEY":       "openai.apikey",
		"OPENAI_ENDPOINT":      "openai.endpoint",
		"LLM_PROVIDER":         "llm.provider",
		"LLM_MODEL":            "llm.model",
		"PATTERNS_PATH":        "flow.patterns_path",
		"PORT":                 "server.port",
		"LOG_LEVEL":            "logging.level",
		"LOG_FORMAT":           "logging.format",
		"LOG_OUTPUT":           "logging.output",
		"INTERACTIONS_STORAGE": "interactions.storage_type",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the configuration for valid values
func validateConfig(config *Config) error {
	var errors []ValidationError

	validProviders := []string{ProviderAuto, ProviderGemini, ProviderOpenAI}
	if !contains(validProviders, config.LLM.Provider) {
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("provider must be one of: %s", strings.Join(validProviders, ", ")),
		})
	}

	timeouts := map[string]time.Duration{
		"llm.question_timeout":       config.LLM.QuestionTimeout,
		"llm.keyword_timeout":        config.LLM.KeywordTimeout,
		"llm.recommendation_timeout": config.LLM.RecommendationTimeout,
	}
	for field, timeout := range timeouts {
		if timeout <= 0 {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: "timeout must be greater than 0",
			})
		}
	}

	if config.Recommendations.MaxCount <= 0 {
		errors = append(errors, ValidationError{
			Field:   "recommendations.max_count",
			Message: "max_count must be greater than 0",
		})
	}

	if config.Recommendations.DefaultCount <= 0 || config.Recommendations.DefaultCount > config.Recommendations.MaxCount {
		errors = append(errors, ValidationError{
			Field:   "recommendations.default_count",
			Message: "default_count must be between 1 and max_count",
		})
	}

	if config.Session.TTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "session.ttl",
			Message: "ttl must be greater than 0",
		})
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	validLogOutputs := []string{"stdout", "stderr", "file"}
	if !contains(validLogOutputs, config.Logging.Output) {
		errors = append(errors, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("log output must be one of: %s", strings.Join(validLogOutputs, ", ")),
		})
	}

	if config.Logging.Output == "file" && config.Logging.FilePath == "" {
		errors = append(errors, ValidationError{
			Field:   "logging.file_path",
			Message: "file_path is required when logging.output is file",
		})
	}

	validStorageTypes := []string{"file", "sqlite", "none"}
	if !contains(validStorageTypes, config.Interactions.StorageType) {
		errors = append(errors, ValidationError{
			Field:   "interactions.storage_type",
			Message: fmt.Sprintf("storage type must be one of: %s", strings.Join(validStorageTypes, ", ")),
		})
	}

	if config.Interactions.StorageType == "sqlite" && config.Interactions.DBPath != "" {
		if err := validateDirectoryExists(filepath.Dir(config.Interactions.DBPath)); err != nil {
			errors = append(errors, ValidationError{
				Field:   "interactions.db_path",
				Message: fmt.Sprintf("interaction database directory is not usable: %s", filepath.Dir(config.Interactions.DBPath)),
			})
		}
	}

	if len(errors) > 0 {
		var errorMessages []string
		for _, err := range errors {
			errorMessages = append(errorMessages, err.Error())
		}
		return fmt.Errorf("%w:\n%s", ErrInvalidConfigValue, strings.Join(errorMessages, "\n"))
	}

	return nil
}

// ResolvedProvider returns the provider that will actually serve calls,
// or an empty string when no credential is configured.
func (c *Config) ResolvedProvider() string {
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey != "" {
			return ProviderGemini
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey != "" {
			return ProviderOpenAI
		}
	default:
		if c.Gemini.APIKey != "" {
			return ProviderGemini
		}
		if c.OpenAI.APIKey != "" {
			return ProviderOpenAI
		}
	}
	return ""
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c

	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = maskValue(masked.OpenAI.APIKey)
	}
	if masked.Gemini.APIKey != "" {
		masked.Gemini.APIKey = maskValue(masked.Gemini.APIKey)
	}

	return &masked
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateDirectoryExists checks if a directory exists
func validateDirectoryExists(path string) error {
	if path == "" || path == "." {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			// created on first write
			return nil
		}
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return nil
}

// getEnvironment returns the current environment (development, production, etc.)
func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "development"
}

// WatchConfig enables configuration hot-reloading. The callback receives
// every successfully validated reload; failed reloads are logged and skipped.
func WatchConfig(configPath string, logger *zap.Logger, callback func(*Config)) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := viper.New()
	if err := setConfigFile(v, configPath); err != nil {
		return err
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file for watching: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))

		config, err := LoadWithOptions(LoadOptions{
			ConfigPath:       configPath,
			EnvFile:          ".env",
			EnableHotReload:  true,
			Environment:      getEnvironment(),
			ValidateRequired: true,
		})
		if err != nil {
			logger.Error("Failed to reload config", zap.Error(err))
			return
		}

		callback(config)
	})
	v.WatchConfig()

	return nil
}
