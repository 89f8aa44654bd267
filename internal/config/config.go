// Package config loads run settings from the environment (optionally seeded
// from a .env file) and validates them before the pipeline starts; a
// malformed configuration aborts the run before anything is written.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DateLayout is the wire format for the survey window bounds.
const DateLayout = "2006-01-02"

// Config holds everything a single export run needs.
type Config struct {
	// Feature service.
	FeatureServiceURL string        `validate:"required,url"`
	Token             string        `validate:"omitempty"`
	EventsLayer       int           `validate:"gte=0"`
	PointsLayer       int           `validate:"gte=0"`
	BandsLayer        int           `validate:"gte=0"`
	HTTPTimeout       time.Duration `validate:"gt=0"`

	// Survey window, date-only: [StartDate, EndDate).
	StartDate string `validate:"required,datetime=2006-01-02"`
	EndDate   string `validate:"required,datetime=2006-01-02"`

	// Output.
	OutputDir string `validate:"required"`
	Timezone  string `validate:"required"`

	// Ambient.
	LogLevel       string `validate:"oneof=debug info warn error"`
	LogFormat      string `validate:"oneof=json text"`
	PushgatewayURL string `validate:"omitempty,url"`
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetDefault("EVENTS_LAYER", 0)
	v.SetDefault("POINTS_LAYER", 1)
	v.SetDefault("BANDS_LAYER", 2)
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("OUTPUT_DIR", "exports")
	v.SetDefault("TIMEZONE", "America/Los_Angeles")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	cfg := &Config{
		FeatureServiceURL: v.GetString("FEATURE_SERVICE_URL"),
		Token:             v.GetString("AGOL_TOKEN"),
		EventsLayer:       v.GetInt("EVENTS_LAYER"),
		PointsLayer:       v.GetInt("POINTS_LAYER"),
		BandsLayer:        v.GetInt("BANDS_LAYER"),
		HTTPTimeout:       v.GetDuration("HTTP_TIMEOUT"),
		StartDate:         v.GetString("START_DATE"),
		EndDate:           v.GetString("END_DATE"),
		OutputDir:         v.GetString("OUTPUT_DIR"),
		Timezone:          v.GetString("TIMEZONE"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		PushgatewayURL:    v.GetString("PUSHGATEWAY_URL"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Window returns the survey window as local midnights: inclusive start,
// exclusive end. An empty window is a configuration error.
func (c *Config) Window(loc *time.Location) (start, end time.Time, err error) {
	start, err = time.ParseInLocation(DateLayout, c.StartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse START_DATE: %w", err)
	}
	end, err = time.ParseInLocation(DateLayout, c.EndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse END_DATE: %w", err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("START_DATE %s is not before END_DATE %s", c.StartDate, c.EndDate)
	}
	return start, end, nil
}
