package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	FeedAddr string `yaml:"feed_addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:     ":8080",
			FeedAddr: ":7070",
		},
		Log: LogConfig{
			Level: "info",
		},
		// Database.Path empty means the database package default
		// (~/.bookhub/data.db) applies.
	}
}

// LoadConfig reads the YAML file at path (or $BOOKHUB_CONFIG when path is
// empty) on top of the defaults, then applies environment overrides.
// No file at all is fine; defaults plus environment win.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("BOOKHUB_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOOKHUB_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("BOOKHUB_FEED_ADDR"); v != "" {
		cfg.Server.FeedAddr = v
	}
	if v := os.Getenv("BOOKHUB_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("BOOKHUB_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
