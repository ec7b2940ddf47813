package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the relay service. It is loaded once at
// startup and passed by reference; request-handling code never reads the
// environment directly.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_bypass"`

	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`

	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`

	Auth struct {
		Issuer   string `mapstructure:"issuer"`
		ClientID string `mapstructure:"client_id"`
	} `mapstructure:"auth"`

	Engine struct {
		WebhookURL     string        `mapstructure:"webhook_url"`
		SigningSecret  string        `mapstructure:"signing_secret"`
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
		MaxAttempts    int           `mapstructure:"max_attempts"`
		BaseDelay      time.Duration `mapstructure:"base_delay"`
	} `mapstructure:"engine"`

	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// LoadConfig loads the configuration from a file and the environment. An
// explicit path overrides the default search locations.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("engine.request_timeout", 30*time.Second)
	viper.SetDefault("engine.max_attempts", 3)
	viper.SetDefault("engine.base_delay", 500*time.Millisecond)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// normalize OIDC issuer url (strip trailing slash if any)
	config.Auth.Issuer = normalizeIssuer(config.Auth.Issuer)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Engine.WebhookURL == "" {
		return errors.New("engine.webhook_url is required")
	}
	if c.Engine.SigningSecret == "" {
		return errors.New("engine.signing_secret is required")
	}
	if c.Engine.MaxAttempts < 1 {
		return errors.New("engine.max_attempts must be at least 1")
	}
	isDev := strings.ToUpper(c.Environment) == "DEV"
	if (!isDev || !c.DevModeBypass) && c.Auth.Issuer == "" {
		return errors.New("auth.issuer is required")
	}
	return nil
}

// normalizeIssuer ensures the provided OIDC issuer string is in a
// predictable form. It removes any trailing slash and leaves the scheme and
// path intact, so the full URL from the identity provider's admin console
// can be pasted as-is.
func normalizeIssuer(input string) string {
	iss := strings.TrimSpace(input)
	if strings.HasSuffix(iss, "/") {
		iss = strings.TrimRight(iss, "/")
	}
	return iss
}
