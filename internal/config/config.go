package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      int    `yaml:"port"`
		APIKey    string `yaml:"api_key"`
		UploadDir string `yaml:"upload_dir"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache struct {
		TTLSeconds            int `yaml:"ttl_seconds"`
		RefreshIntervalSecond int `yaml:"refresh_interval_seconds"`
	} `yaml:"cache"`

	Telegram struct {
		BotToken    string  `yaml:"bot_token"`
		StaffChatID int64   `yaml:"staff_chat_id"`
		RatePerSec  float64 `yaml:"rate_per_sec"`
		Debug       bool    `yaml:"debug"`
	} `yaml:"telegram"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		PendingTTLMinutes     int `yaml:"pending_ttl_minutes"`
		ExpirySweepMinutes    int `yaml:"expiry_sweep_minutes"`
		DefaultDurationNights int `yaml:"default_duration_nights"`
		DefaultDurationHours  int `yaml:"default_duration_hours"`
	} `yaml:"booking"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
	} `yaml:"sheets"`
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
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = "data/uploads"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/rentadesk.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}
	if err = os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) CacheRefreshInterval() time.Duration {
	if c.Cache.RefreshIntervalSecond <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Cache.RefreshIntervalSecond) * time.Second
}

func (c *Config) PendingTTL() time.Duration {
	if c.Booking.PendingTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Booking.PendingTTLMinutes) * time.Minute
}

func (c *Config) ExpirySweepInterval() time.Duration {
	if c.Booking.ExpirySweepMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Booking.ExpirySweepMinutes) * time.Minute
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) TelegramRate() float64 {
	if c.Telegram.RatePerSec <= 0 {
		return 1
	}
	return c.Telegram.RatePerSec
}
