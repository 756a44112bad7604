package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/pointcap.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// Scoring knobs. One holding point accrues per HoldUnit of control;
	// CaptureBonus is awarded for the act of capturing.
	CaptureBonus int           `env:"CAPTURE_BONUS" envDefault:"5"`
	HoldUnit     time.Duration `env:"HOLD_UNIT" envDefault:"1s"`

	// RefreshInterval is the live scoreboard recompute cadence.
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"3s"`

	SeedDemo bool `env:"SEED_DEMO" envDefault:"true"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
