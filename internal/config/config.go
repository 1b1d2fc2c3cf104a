package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the overlay's presentation constants. The defaults are tuned
// for the bundled VT_student model; every value can be overridden from the
// environment.
type Config struct {
	ModelPath  string `env:"VTOVERLAY_MODEL" envDefault:"static/vtuber/model/VT_student/VT_student.model3.json"`
	AssetRoot  string `env:"VTOVERLAY_ASSET_ROOT" envDefault:"."`
	IdleMotion string `env:"VTOVERLAY_IDLE_MOTION" envDefault:"Idle"`

	// Initial placement is (W/2, H+OffsetY); after a resize it is (W/2, H*ResizeFactorY).
	OffsetY       float32 `env:"VTOVERLAY_OFFSET_Y" envDefault:"660"`
	ResizeFactorY float32 `env:"VTOVERLAY_RESIZE_FACTOR_Y" envDefault:"0.75"`
	Scale         float32 `env:"VTOVERLAY_SCALE" envDefault:"0.35"`
	AnchorX       float32 `env:"VTOVERLAY_ANCHOR_X" envDefault:"0.5"`
	AnchorY       float32 `env:"VTOVERLAY_ANCHOR_Y" envDefault:"1"`

	Width        int           `env:"VTOVERLAY_WIDTH" envDefault:"1280"`
	Height       int           `env:"VTOVERLAY_HEIGHT" envDefault:"720"`
	LoadTimeout  time.Duration `env:"VTOVERLAY_LOAD_TIMEOUT" envDefault:"0s"`
	ClickThrough bool          `env:"VTOVERLAY_CLICK_THROUGH" envDefault:"false"`
	Debug        bool          `env:"VTOVERLAY_DEBUG" envDefault:"false"`
	LogLevel     string        `env:"VTOVERLAY_LOG_LEVEL" envDefault:"info"`
}

// Load reads the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromMap parses vars as if they were the whole environment.
func FromMap(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in values.
func Default() Config {
	cfg, err := FromMap(map[string]string{})
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("config: model path is empty")
	}
	if c.Scale <= 0 {
		return fmt.Errorf("config: scale must be positive, got %v", c.Scale)
	}
	if c.AnchorX < 0 || c.AnchorX > 1 || c.AnchorY < 0 || c.AnchorY > 1 {
		return fmt.Errorf("config: anchor (%v, %v) outside [0,1]", c.AnchorX, c.AnchorY)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: window size %dx%d must be positive", c.Width, c.Height)
	}
	if c.LoadTimeout < 0 {
		return fmt.Errorf("config: load timeout must not be negative, got %v", c.LoadTimeout)
	}
	return nil
}
