package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix               = "REPARIGO"
	defaultHTTPAddress      = "0.0.0.0:8080"
	defaultDatabasePath     = "reparigo.db"
	defaultLogLevel         = "info"
	defaultSiteOrigin       = "https://www.reparigo.fr"
	defaultGeneratorTimeout = 30
	defaultTokenTTLMinutes  = 60
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress      string
	DatabasePath     string
	LogLevel         string
	SiteOrigin       string
	GeneratorURL     string
	GeneratorTimeout time.Duration
	SigningSecret    string
	AdminKey         string
	TokenTTL         time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("site.origin", defaultSiteOrigin)
	configViper.SetDefault("generator.timeout_seconds", defaultGeneratorTimeout)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMinutes)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:      configViper.GetString("http.address"),
		DatabasePath:     configViper.GetString("database.path"),
		LogLevel:         configViper.GetString("log.level"),
		SiteOrigin:       configViper.GetString("site.origin"),
		GeneratorURL:     configViper.GetString("generator.url"),
		GeneratorTimeout: time.Duration(configViper.GetInt("generator.timeout_seconds")) * time.Second,
		SigningSecret:    configViper.GetString("auth.signing_secret"),
		AdminKey:         configViper.GetString("auth.admin_key"),
		TokenTTL:         time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.SiteOrigin) == "" {
		return fmt.Errorf("site.origin is required")
	}
	if strings.TrimSpace(c.GeneratorURL) == "" {
		return fmt.Errorf("generator.url is required")
	}
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.AdminKey) == "" {
		return fmt.Errorf("auth.admin_key is required")
	}
	return nil
}
