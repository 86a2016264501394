package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig holds all process configuration. Tags use mapstructure for viper
// unmarshalling; every value can be supplied via environment variable of the
// same name. Client secret and encryption key are opaque secrets: they are
// read here once and never logged or persisted.
type AppConfig struct {
	HTTPPort        string `mapstructure:"HTTP_PORT"`
	MongoURI        string `mapstructure:"MONGO_URI"`
	MongoDBName     string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"` // Optional; empty selects the in-memory attempt store
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	PlatformBaseURL string `mapstructure:"PLATFORM_BASE_URL"`
	AuthorizeURL    string `mapstructure:"PLATFORM_AUTHORIZE_URL"`
	TokenURL        string `mapstructure:"PLATFORM_TOKEN_URL"`
	APIVersion      string `mapstructure:"PLATFORM_API_VERSION"`

	ClientID      string `mapstructure:"CLIENT_ID"`
	ClientSecret  string `mapstructure:"CLIENT_SECRET"`
	CallbackURL   string `mapstructure:"CALLBACK_URL"`
	Scope         string `mapstructure:"SCOPE"`
	EncryptionKey string `mapstructure:"ENCRYPTION_KEY"`

	AttemptTTLMin int `mapstructure:"ATTEMPT_TTL_MIN"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*AppConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/platform-connect/")
	v.AddConfigPath("$HOME/.platform-connect")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/platform_connect_dev")
	v.SetDefault("MONGO_DB_NAME", "platform_connect_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "platform-connect")
	v.SetDefault("PLATFORM_API_VERSION", "2024-01")
	v.SetDefault("SCOPE", "read write")
	v.SetDefault("ATTEMPT_TTL_MIN", 5)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, env vars and defaults still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the authorization flow cannot run without.
func (c *AppConfig) Validate() error {
	var missing []string
	for name, value := range map[string]string{
		"PLATFORM_BASE_URL":      c.PlatformBaseURL,
		"PLATFORM_AUTHORIZE_URL": c.AuthorizeURL,
		"PLATFORM_TOKEN_URL":     c.TokenURL,
		"CLIENT_ID":              c.ClientID,
		"CLIENT_SECRET":          c.ClientSecret,
		"CALLBACK_URL":           c.CallbackURL,
		"ENCRYPTION_KEY":         c.EncryptionKey,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
