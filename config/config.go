// Package config loads server settings from the environment and an
// optional app.env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type DBConfig struct {
	Path string
}

type AuthConfig struct {
	// Secret signs bearer tokens. Empty disables the role gate (development).
	Secret string
}

type PettyCashConfig struct {
	CloseInterval time.Duration
	AutoClose     bool
}

type Config struct {
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	PettyCash   PettyCashConfig
}

func (c *Config) IsDevelopment() bool { return c.Environment == "development" }

// Addr is the host:port the server listens on.
func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port) }

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("DB_PATH", "expenses.db")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")
	v.SetDefault("CLOSE_INTERVAL", "1h")
	v.SetDefault("AUTO_CLOSE", true)

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:    strings.ToLower(v.GetString("LOG_LEVEL")),
		HTTP: HTTPConfig{
			Host:        v.GetString("HTTP_HOST"),
			Port:        v.GetInt("HTTP_PORT"),
			CORSOrigins: parseList(v.GetString("CORS_ORIGINS")),
		},
		DB: DBConfig{
			Path: v.GetString("DB_PATH"),
		},
		Auth: AuthConfig{
			Secret: v.GetString("AUTH_SECRET"),
		},
		PettyCash: PettyCashConfig{
			CloseInterval: v.GetDuration("CLOSE_INTERVAL"),
			AutoClose:     v.GetBool("AUTO_CLOSE"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", cfg.HTTP.Port)
	}
	if cfg.DB.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if cfg.PettyCash.AutoClose && cfg.PettyCash.CloseInterval <= 0 {
		return fmt.Errorf("CLOSE_INTERVAL must be positive")
	}
	if !cfg.IsDevelopment() && cfg.Auth.Secret == "" {
		return fmt.Errorf("AUTH_SECRET is required outside development")
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
