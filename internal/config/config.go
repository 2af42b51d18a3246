package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Audit struct {
		RetentionDays int    `yaml:"retention_days"`
		ExportDir     string `yaml:"export_dir"`
	} `yaml:"audit"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/roomly.db"
	}
	if cfg.Audit.RetentionDays <= 0 {
		cfg.Audit.RetentionDays = 31
	}
	if cfg.Audit.ExportDir == "" {
		cfg.Audit.ExportDir = "data/audit"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// CacheTTL returns the redis snapshot TTL.
func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

// AuditRetention returns how long audit entries are kept.
func (c *Config) AuditRetention() time.Duration {
	return time.Duration(c.Audit.RetentionDays) * 24 * time.Hour
}
