package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ProtocolVersion string `yaml:"protocol_version"`

	// RefreshPeriodMS is how often open panels are re-aggregated.
	RefreshPeriodMS int    `yaml:"refresh_period_ms"`
	EmptyText       string `yaml:"empty_text"`

	Window Window `yaml:"window"`
	Feed   Feed   `yaml:"feed"`
	Panels Panels `yaml:"panels"`
}

type Window struct {
	Title     string `yaml:"title"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	PositionX string `yaml:"position_x"`
	PositionY int    `yaml:"position_y"`
}

type Feed struct {
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	Journal      bool  `yaml:"journal"`
}

type Panels struct {
	MaxPanels   int `yaml:"max_panels"`
	QueueFrames int `yaml:"queue_frames"`
}

func Defaults() Config {
	return Config{
		ProtocolVersion: "1.0",
		RefreshPeriodMS: 2000,
		EmptyText:       "",
		Window: Window{
			Title:     "Unit Production",
			Width:     400,
			Height:    600,
			PositionX: "center",
			PositionY: 60,
		},
		Feed: Feed{
			MaxBodyBytes: 1 << 20,
			Journal:      true,
		},
		Panels: Panels{
			MaxPanels:   16,
			QueueFrames: 4,
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("overlay.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("overlay.yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	d := Defaults()
	c.Window.Title = strings.TrimSpace(c.Window.Title)
	if c.Window.Title == "" {
		c.Window.Title = d.Window.Title
	}
	if c.Window.PositionX == "" {
		c.Window.PositionX = d.Window.PositionX
	}
	if c.Feed.MaxBodyBytes <= 0 {
		c.Feed.MaxBodyBytes = d.Feed.MaxBodyBytes
	}
	if c.Panels.QueueFrames <= 0 {
		c.Panels.QueueFrames = d.Panels.QueueFrames
	}
	if c.Panels.QueueFrames > 64 {
		c.Panels.QueueFrames = 64
	}
}

func (c Config) Validate() error {
	if c.RefreshPeriodMS < 100 {
		return fmt.Errorf("refresh_period_ms must be >= 100")
	}
	if c.RefreshPeriodMS > 10*60*1000 {
		return fmt.Errorf("refresh_period_ms must be <= 600000")
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be > 0")
	}
	if c.Panels.MaxPanels <= 0 {
		return fmt.Errorf("panels.max_panels must be > 0")
	}
	return nil
}

func (c Config) RefreshPeriod() time.Duration {
	return time.Duration(c.RefreshPeriodMS) * time.Millisecond
}
