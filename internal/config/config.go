// Package config holds the static market registry and the runtime settings
// for the fetch/store/enrich pipeline. Settings load from an optional JSON
// file with environment variable overrides; a .env file is honored when
// present.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/alirezadp10/market-trends/internal/jalali"
)

// JobSchedule defines when a named scheduler job runs.
type JobSchedule struct {
	Cron       string            `json:"cron"`
	Enabled    bool              `json:"enabled"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Config holds all runtime settings.
type Config struct {
	// Database settings
	DBFile  string `json:"db_file"`
	DBTable string `json:"db_table"`

	// Events CSV with manually curated market annotations
	EventsFile string `json:"events_file"`

	// Date scope, Jalali calendar
	StartYear  int `json:"start_year"`
	StartMonth int `json:"start_month"`
	StartDay   int `json:"start_day"`
	EndYear    int `json:"end_year"`
	EndMonth   int `json:"end_month"`
	EndDay     int `json:"end_day"`

	// API settings
	APITimeoutSec int    `json:"api_timeout_sec"`
	MaxRetries    int    `json:"max_retries"`
	NFusionToken  string `json:"nfusion_token,omitempty"`

	// Chart settings
	ChartHeight int    `json:"chart_height"`
	ChartDir    string `json:"chart_dir"`

	// HTTP API settings
	ServerPort int `json:"server_port"`

	// Redis publishing; empty address disables publishing
	RedisAddr string `json:"redis_addr"`

	// Scheduler settings
	TimeZone  string                 `json:"timezone"`
	Schedules map[string]JobSchedule `json:"schedules,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DBFile:        "market_data.db",
		DBTable:       "market_data",
		EventsFile:    "events.csv",
		StartYear:     1395,
		StartMonth:    1,
		StartDay:      1,
		EndYear:       1410,
		EndMonth:      1,
		EndDay:        1,
		APITimeoutSec: 30,
		MaxRetries:    3,
		ChartHeight:   800,
		ChartDir:      "charts",
		ServerPort:    8090,
		TimeZone:      "Asia/Tehran",
		Schedules: map[string]JobSchedule{
			"fetch_prices":      {Cron: "0 18 * * *", Enabled: true},
			"remove_duplicates": {Cron: "30 18 * * *", Enabled: true},
		},
	}
}

// Load builds the configuration from defaults, an optional JSON file and
// environment overrides, in that order. A .env file in the working directory
// is loaded first so it can feed the overrides.
func Load(path string) (*Config, error) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()

	if _, err := cfg.StartDate(); err != nil {
		return nil, err
	}
	if _, err := cfg.EndDate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveToFile writes the configuration as indented JSON.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.DBFile, "DB_FILE")
	setString(&c.DBTable, "DB_TABLE")
	setString(&c.EventsFile, "EVENTS_FILE")
	setInt(&c.StartYear, "START_YEAR")
	setInt(&c.StartMonth, "START_MONTH")
	setInt(&c.StartDay, "START_DAY")
	setInt(&c.EndYear, "END_YEAR")
	setInt(&c.EndMonth, "END_MONTH")
	setInt(&c.EndDay, "END_DAY")
	setInt(&c.APITimeoutSec, "API_TIMEOUT")
	setInt(&c.MaxRetries, "API_MAX_RETRIES")
	setString(&c.NFusionToken, "NFUSION_TOKEN")
	setInt(&c.ChartHeight, "CHART_HEIGHT")
	setString(&c.ChartDir, "CHART_DIR")
	setInt(&c.ServerPort, "SERVER_PORT")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.TimeZone, "TIMEZONE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// StartDate returns the inclusive start of the tracked date range.
func (c *Config) StartDate() (jalali.Date, error) {
	return jalali.New(c.StartYear, c.StartMonth, c.StartDay)
}

// EndDate returns the exclusive end of the tracked date range.
func (c *Config) EndDate() (jalali.Date, error) {
	return jalali.New(c.EndYear, c.EndMonth, c.EndDay)
}

// APITimeout returns the per-request timeout for upstream APIs.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSec) * time.Second
}
