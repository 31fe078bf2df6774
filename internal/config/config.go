package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     App     `mapstructure:"app"`
	Server  Server  `mapstructure:"server"`
	AI      AI      `mapstructure:"ai"`
	Summary Summary `mapstructure:"summary"`
	Bot     Bot     `mapstructure:"bot"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	CORS         CORS   `mapstructure:"cors"`
}

// CORS holds cross-origin configuration for the mini-app frontend
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AI holds analysis provider configuration
type AI struct {
	DefaultProvider string           `mapstructure:"default_provider"` // 'openrouter' | 'gemini'
	OpenRouter      OpenRouterConfig `mapstructure:"openrouter"`
	Gemini          GeminiConfig     `mapstructure:"gemini"`
}

// OpenRouterConfig holds OpenRouter (OpenAI-compatible) configuration
type OpenRouterConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	TextModel string `mapstructure:"text_model"`
	Timeout   string `mapstructure:"timeout"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout string `mapstructure:"timeout"`
}

// Summary holds the analytics cache policy knobs
type Summary struct {
	MaxRetries int    `mapstructure:"max_retries"` // transient provider failures per computation
	RetryDelay string `mapstructure:"retry_delay"`
	// ErrorRetry controls when an error-status artifact is retried:
	// 'next_request' re-attempts once error_ttl has elapsed, 'next_trigger'
	// keeps serving it until the data fingerprint changes or a force request.
	ErrorRetry string `mapstructure:"error_retry"`
	ErrorTTL   string `mapstructure:"error_ttl"`
}

// Bot holds the Telegram bot integration configuration
type Bot struct {
	Token string `mapstructure:"token"`
	Debug bool   `mapstructure:"debug"` // allow unauthenticated requests with a test user
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".yourbody")
		viper.SetConfigType("yaml")
	}

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvironmentVariables()

	// Enable automatic environment variable reading
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into struct
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Apply post-processing
	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".yourbody-data")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{
		"https://your-body-pro.vercel.app",
		"http://localhost:3000",
		"http://localhost:5173",
	})

	// AI defaults
	viper.SetDefault("ai.default_provider", "openrouter")
	viper.SetDefault("ai.openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("ai.openrouter.text_model", "openai/gpt-4o-mini")
	viper.SetDefault("ai.openrouter.timeout", "30s")
	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.timeout", "30s")

	// Summary policy defaults
	viper.SetDefault("summary.max_retries", 2)
	viper.SetDefault("summary.retry_delay", "1s")
	viper.SetDefault("summary.error_retry", "next_request")
	viper.SetDefault("summary.error_ttl", "10m")

	// Bot defaults
	viper.SetDefault("bot.debug", false)
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.openrouter.api_key", []string{
		"OPENROUTER_API_KEY",
	})

	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("bot.token", []string{
		"BOT_TOKEN",
		"TELEGRAM_BOT_TOKEN",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"YOURBODY_DEBUG",
	})

	bindEnvKeys("app.data_dir", []string{
		"YOURBODY_DATA_DIR",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}

	durations := map[string]string{
		"server.read_timeout":   config.Server.ReadTimeout,
		"server.write_timeout":  config.Server.WriteTimeout,
		"ai.openrouter.timeout": config.AI.OpenRouter.Timeout,
		"ai.gemini.timeout":     config.AI.Gemini.Timeout,
		"summary.retry_delay":   config.Summary.RetryDelay,
		"summary.error_ttl":     config.Summary.ErrorTTL,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	switch config.AI.DefaultProvider {
	case "openrouter":
		if config.AI.OpenRouter.APIKey == "" {
			errors = append(errors, "OpenRouter API key is required. Set OPENROUTER_API_KEY environment variable or ai.openrouter.api_key in config file")
		}
	case "gemini":
		if config.AI.Gemini.APIKey == "" {
			errors = append(errors, "Gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown analysis provider: %s. Supported: openrouter, gemini", config.AI.DefaultProvider))
	}

	if config.Summary.ErrorRetry != "next_request" && config.Summary.ErrorRetry != "next_trigger" {
		errors = append(errors, fmt.Sprintf("Unknown summary.error_retry policy: %s. Supported: next_request, next_trigger", config.Summary.ErrorRetry))
	}

	if config.Bot.Token == "" && !config.Bot.Debug {
		errors = append(errors, "Telegram bot token is required for request authentication. Set BOT_TOKEN or enable bot.debug for local development")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Convenience getters for commonly used configuration values
func GetApp() App         { return Get().App }
func GetServer() Server   { return Get().Server }
func GetAI() AI           { return Get().AI }
func GetSummary() Summary { return Get().Summary }
func GetBot() Bot         { return Get().Bot }

func GetDataDir() string { return Get().App.DataDir }
func IsDebugMode() bool  { return Get().App.Debug }

// ProviderTimeout returns the per-attempt budget for the configured provider.
func (a AI) ProviderTimeout() time.Duration {
	raw := a.OpenRouter.Timeout
	if a.DefaultProvider == "gemini" {
		raw = a.Gemini.Timeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ReadTimeoutDuration returns the parsed server read timeout.
func (s Server) ReadTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.ReadTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// WriteTimeoutDuration returns the parsed server write timeout.
func (s Server) WriteTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.WriteTimeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// RetryDelayDuration returns the parsed delay between provider retries.
func (s Summary) RetryDelayDuration() time.Duration {
	d, err := time.ParseDuration(s.RetryDelay)
	if err != nil || d < 0 {
		return time.Second
	}
	return d
}

// ErrorTTLDuration returns the freshness window of error-status artifacts.
func (s Summary) ErrorTTLDuration() time.Duration {
	d, err := time.ParseDuration(s.ErrorTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
