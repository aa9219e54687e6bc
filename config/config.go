// Package config loads the engine configuration from a JSON or YAML file
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fieldsched/core/factory"
	"github.com/kilianp07/fieldsched/core/model"
)

type Config struct {
	Logging    LoggingConfig    `json:"logging"`
	Scheduling SchedulingConfig `json:"scheduling"`
	Conflict   ConflictConfig   `json:"conflict"`
	Providers  ProvidersConfig  `json:"providers"`
	Metrics    MetricsConfig    `json:"metrics"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `json:"level"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("unknown log level %q", c.Level)
}

// SchedulingConfig tunes slot enumeration and itinerary composition.
type SchedulingConfig struct {
	DayStart             string  `json:"day_start"` // "HH:MM" local
	DayEnd               string  `json:"day_end"`
	GranularityMinutes   int     `json:"granularity_minutes"`
	Country              string  `json:"country"`
	State                string  `json:"state"`
	MinutesPerKm         float64 `json:"minutes_per_km"`
	PerCallBudgetSeconds int     `json:"per_call_budget_seconds"`
	PreferredBonus       float64 `json:"preferred_bonus"`
	PriorityTieGap       int     `json:"priority_tie_gap"`
	// IncludeObservances also blocks scheduling on observance days.
	IncludeObservances bool `json:"include_observances"`
}

func (c *SchedulingConfig) SetDefaults() {
	if c.DayStart == "" {
		c.DayStart = "09:00"
	}
	if c.DayEnd == "" {
		c.DayEnd = "17:00"
	}
	if c.GranularityMinutes <= 0 {
		c.GranularityMinutes = 30
	}
	if c.Country == "" {
		c.Country = "US"
	}
}

func (c SchedulingConfig) Validate() error {
	if _, err := model.ParseWorkingHours(c.DayStart, c.DayEnd); err != nil {
		return fmt.Errorf("scheduling: %w", err)
	}
	if c.MinutesPerKm < 0 {
		return fmt.Errorf("scheduling: minutes_per_km must not be negative")
	}
	return nil
}

// WorkingDay returns the configured day window as clock times.
func (c SchedulingConfig) WorkingDay() (model.WorkingHours, error) {
	return model.ParseWorkingHours(c.DayStart, c.DayEnd)
}

// Granularity returns the slot step as a duration.
func (c SchedulingConfig) Granularity() time.Duration {
	return time.Duration(c.GranularityMinutes) * time.Minute
}

// PerCallBudget returns the per-appointment time budget.
func (c SchedulingConfig) PerCallBudget() time.Duration {
	return time.Duration(c.PerCallBudgetSeconds) * time.Second
}

// ConflictConfig tunes the conflict analyzer thresholds.
type ConflictConfig struct {
	TravelThresholdMinutes int `json:"travel_threshold_minutes"`
	MaxAppointmentsPerDay  int `json:"max_appointments_per_day"`
	OverlapMediumMinutes   int `json:"overlap_medium_minutes"`
	OverlapHighMinutes     int `json:"overlap_high_minutes"`
}

// ProvidersConfig selects the provider implementation for each capability.
type ProvidersConfig struct {
	Holiday  factory.ModuleConfig `json:"holiday"`
	Timezone factory.ModuleConfig `json:"timezone"`
	Routing  factory.ModuleConfig `json:"routing"`
}

func (c *ProvidersConfig) SetDefaults() {
	if c.Holiday.Type == "" {
		c.Holiday.Type = "builtin"
	}
	if c.Timezone.Type == "" {
		c.Timezone.Type = "static"
	}
	if c.Routing.Type == "" {
		c.Routing.Type = "internal"
	}
}

// MetricsConfig enables the metrics sinks.
type MetricsConfig struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusEnabled && c.PrometheusPort == "" {
		c.PrometheusPort = "9090"
	}
}

func (c MetricsConfig) Validate() error {
	if c.InfluxEnabled && c.InfluxURL == "" {
		return fmt.Errorf("metrics: influx_url is required when influx is enabled")
	}
	return nil
}

// Load reads the config file at path. Environment variables prefixed with
// FIELDSCHED_ override file values, with __ as the nesting separator, e.g.
// FIELDSCHED_METRICS__PROMETHEUS_PORT=2112.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("FIELDSCHED_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "fieldsched_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()
	c.Scheduling.SetDefaults()
	c.Providers.SetDefaults()
	c.Metrics.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Scheduling.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}
