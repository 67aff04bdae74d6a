package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tallerbot/internal/schedule"
	"tallerbot/internal/shop"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Webhook struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"webhook"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		LookaheadDays         int `yaml:"lookahead_days"`
		MaxSuggestions        int `yaml:"max_suggestions"`
		SessionTimeoutMinutes int `yaml:"session_timeout_minutes"`
	} `yaml:"booking"`

	Shop shop.Profile `yaml:"shop"`

	// Hours maps weekday names to open intervals as HH:MM pairs, e.g.
	// monday: [["09:00","14:00"],["16:00","20:00"]]. Days left out are
	// closed. When the whole section is absent the shop's published
	// hours apply.
	Hours map[string][][2]string `yaml:"hours"`

	weekly schedule.Weekly
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

	if err = cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finish applies defaults and fails fast on a corrupt hours template.
func (c *Config) finish() error {
	if c.Shop == (shop.Profile{}) {
		c.Shop = shop.DefaultProfile()
	}

	if c.Hours == nil {
		c.weekly = schedule.Default()
	} else {
		weekly, err := schedule.ParseWeekly(c.Hours)
		if err != nil {
			return fmt.Errorf("hours: %w", err)
		}
		c.weekly = weekly
	}
	return nil
}

// Weekly returns the validated opening-hours template.
func (c *Config) Weekly() schedule.Weekly {
	if c.weekly == nil {
		c.weekly = schedule.Default()
	}
	return c.weekly
}

func (c *Config) WebhookTimeout() time.Duration {
	if c.Webhook.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Webhook.TimeoutSeconds) * time.Second
}

func (c *Config) SessionTimeout() time.Duration {
	if c.Booking.SessionTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.SessionTimeoutMinutes) * time.Minute
}
