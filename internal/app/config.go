package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"ib-history/internal/download"
	"ib-history/internal/ib"
	"ib-history/internal/timescale"
)

// Config holds application configuration from env
type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"` // debug | info | warn | error
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`
	SaveFormat  string `env:"SAVE_FORMAT"`
	Profile     string `env:"PROFILE"`
	DataDir     string `env:"DATA_DIR" envDefault:"data"`
	TickersFile string `env:"TICKERS_FILE"`
	ProgressDB  string `env:"PROGRESS_DB"`

	ExchangeTZ string `env:"EXCHANGE_TZ" envDefault:"US/Eastern"`
	WhatToShow string `env:"WHAT_TO_SHOW" envDefault:"TRADES"`

	IB        IBConfig        `envPrefix:"IB_"`
	Schedule  ScheduleConfig  `envPrefix:"SCHEDULE_"`
	Timescale TimescaleConfig `envPrefix:"TIMESCALE_"`
}

type IBConfig struct {
	Host                 string        `env:"HOST" envDefault:"127.0.0.1"`
	Port                 int           `env:"PORT" envDefault:"7496"`
	Path                 string        `env:"PATH" envDefault:"/"`
	PollInterval         time.Duration `env:"POLL_INTERVAL" envDefault:"100ms"`
	ConnectTimeout       time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	StabilizeDelay       time.Duration `env:"STABILIZE_DELAY" envDefault:"1s"`
	JoinTimeout          time.Duration `env:"JOIN_TIMEOUT" envDefault:"2s"`
	MinuteRequestTimeout time.Duration `env:"MINUTE_REQUEST_TIMEOUT" envDefault:"30s"`
	DailyRequestTimeout  time.Duration `env:"DAILY_REQUEST_TIMEOUT" envDefault:"60s"`
	MinuteClientID       int           `env:"MINUTE_CLIENT_ID" envDefault:"2"`
	DailyClientID        int           `env:"DAILY_CLIENT_ID" envDefault:"3"`
}

type ScheduleConfig struct {
	RunHour      int `env:"RUN_HOUR" envDefault:"0"`
	RunMinute    int `env:"RUN_MINUTE" envDefault:"30"`
	LookbackDays int `env:"LOOKBACK_DAYS" envDefault:"730"`
}

type TimescaleConfig struct {
	DSN    string `env:"DSN"`
	Schema string `env:"SCHEMA" envDefault:"public"`
}

// LoadConfig reads .env (if present) and the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.SaveFormat = saveFormat(cfg.SaveFormat, cfg.Profile)

	if cfg.Schedule.RunHour < 0 || cfg.Schedule.RunHour > 23 {
		return nil, fmt.Errorf("SCHEDULE_RUN_HOUR out of range: %d", cfg.Schedule.RunHour)
	}
	if cfg.Schedule.RunMinute < 0 || cfg.Schedule.RunMinute > 59 {
		return nil, fmt.Errorf("SCHEDULE_RUN_MINUTE out of range: %d", cfg.Schedule.RunMinute)
	}
	if _, err := time.LoadLocation(cfg.ExchangeTZ); err != nil {
		return nil, fmt.Errorf("EXCHANGE_TZ: %w", err)
	}
	return cfg, nil
}

// saveFormat prefers SAVE_FORMAT; otherwise dev profiles write csv and everything else parquet.
func saveFormat(explicit, profile string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return strings.ToLower(v)
	}
	switch profile {
	case "dev", "development":
		return "csv"
	default:
		return "parquet"
	}
}

func (c *Config) SessionConfig() ib.SessionConfig {
	return ib.SessionConfig{
		Host:           c.IB.Host,
		Port:           c.IB.Port,
		PollInterval:   c.IB.PollInterval,
		ConnectTimeout: c.IB.ConnectTimeout,
		StabilizeDelay: c.IB.StabilizeDelay,
		JoinTimeout:    c.IB.JoinTimeout,
	}
}

func (c *Config) MinuteConfig() download.Config {
	return download.Config{
		ClientID:       c.IB.MinuteClientID,
		RequestTimeout: c.IB.MinuteRequestTimeout,
		ExchangeTZ:     c.ExchangeTZ,
		WhatToShow:     c.WhatToShow,
	}
}

func (c *Config) DailyConfig() download.Config {
	return download.Config{
		ClientID:       c.IB.DailyClientID,
		RequestTimeout: c.IB.DailyRequestTimeout,
		ExchangeTZ:     c.ExchangeTZ,
		WhatToShow:     c.WhatToShow,
	}
}

func (c *Config) TimescaleWriterConfig() timescale.Config {
	return timescale.Config{DSN: c.Timescale.DSN, Schema: c.Timescale.Schema}
}

// ProgressPath returns PROGRESS_DB, or <storageDir>/.lastday.json.
func (c *Config) ProgressPath(storageDir string) string {
	if c.ProgressDB != "" {
		return c.ProgressDB
	}
	return filepath.Join(storageDir, ".lastday.json")
}

// Lookback is how far back the scheduler starts a ticker without progress.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Schedule.LookbackDays) * 24 * time.Hour
}
