package config

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`
	Redis struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"redis"`
	MQTT struct {
		Broker   string `mapstructure:"broker"`
		ClientID string `mapstructure:"client_id"`
	} `mapstructure:"mqtt"`
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	JWT struct {
		Secret string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	MDNS struct {
		Enabled   bool   `mapstructure:"enabled"`
		LocalName string `mapstructure:"local_name"`
	} `mapstructure:"mdns"`
	RemoteAccess struct {
		Enabled        bool   `mapstructure:"enabled"`
		PublicWS       string `mapstructure:"public_ws"`
		AgentID        string `mapstructure:"agent_id"`
		RetryDelaySecs int    `mapstructure:"retry_delay_secs"`
	} `mapstructure:"remote_access"`
	Presence struct {
		OfflineAfter  time.Duration `mapstructure:"offline_after"`
		SweepInterval time.Duration `mapstructure:"sweep_interval"`
	} `mapstructure:"presence"`
	LogLevel string `mapstructure:"log_level"`
}

// LoadConfig reads configuration from config.yaml, .env, or env vars
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("http.addr", ":5069")
	viper.SetDefault("mqtt.client_id", "smartliving-backend")
	viper.SetDefault("mdns.local_name", "smartliving.local")
	viper.SetDefault("presence.offline_after", 5*time.Minute)
	viper.SetDefault("presence.sweep_interval", time.Minute)
	viper.SetDefault("remote_access.retry_delay_secs", 2)
	viper.SetDefault("log_level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SlogLevel maps the configured level string to a slog.Level
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
