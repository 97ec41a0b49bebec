package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration
type Config struct {
	Version   int             `toml:"version"`
	Instagram InstagramConfig `toml:"instagram"`
	Ghost     GhostConfig     `toml:"ghost"`
	Telegram  TelegramConfig  `toml:"telegram"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Storage   StorageConfig   `toml:"storage"`
}

type InstagramConfig struct {
	Account   string `toml:"account"`
	ScanLimit int    `toml:"scan_limit"`
	MediaDir  string `toml:"media_dir"`
}

type GhostConfig struct {
	URL               string   `toml:"url"`
	AdminAPIKey       string   `toml:"admin_api_key"`
	Status            string   `toml:"status"`
	Tags              []string `toml:"tags"`
	APITimeoutSecs    int      `toml:"api_timeout_secs"`
	UploadTimeoutSecs int      `toml:"upload_timeout_secs"`
}

type TelegramConfig struct {
	BotToken        string `toml:"bot_token"`
	ChannelID       int64  `toml:"channel_id"`
	SendTimeoutSecs int    `toml:"send_timeout_secs"`
}

type ScheduleConfig struct {
	IntervalHours    int    `toml:"interval_hours"`
	RunAtStartup     bool   `toml:"run_at_startup"`
	Timezone         string `toml:"timezone"`
	CycleTimeoutMins int    `toml:"cycle_timeout_mins"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Instagram: InstagramConfig{
			ScanLimit: 5,
			MediaDir:  "media_downloads",
		},
		Ghost: GhostConfig{
			Status:            "published",
			Tags:              []string{"instagram", "social-media"},
			APITimeoutSecs:    30,
			UploadTimeoutSecs: 120,
		},
		Telegram: TelegramConfig{
			SendTimeoutSecs: 120,
		},
		Schedule: ScheduleConfig{
			IntervalHours:    1,
			RunAtStartup:     false,
			Timezone:         "Local",
			CycleTimeoutMins: 30,
		},
		Storage: StorageConfig{
			DBPath: "instagram_posts.db",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "instagrampostwatcher"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from disk and applies environment overrides.
// Secrets are expected in the environment on most deployments.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	return &cfg, nil
}

// ApplyEnv overrides config fields from environment variables. Variable
// names match the original deployment's .env file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("CHANNEL_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChannelID = id
		}
	}
	if v := os.Getenv("GHOST_URL"); v != "" {
		c.Ghost.URL = v
	}
	if v := os.Getenv("ADMIN_API_KEY"); v != "" {
		c.Ghost.AdminAPIKey = v
	}
	if v := os.Getenv("INSTAGRAM_PAGE"); v != "" {
		c.Instagram.Account = v
	}
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
