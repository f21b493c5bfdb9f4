// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

// Package config handles the application's configuration. It is resolved once at
// process start and treated as immutable for the process lifetime.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv = "FORECASTPIPE"

	// DefaultTextTpl renders the forecast as an aligned plain-text table
	DefaultTextTpl = `{{range .Forecast}}{{pad (dateFormat .Date "2006-01-02") 12}}` +
		`{{pad (printf "%d°C" .TemperatureC) 8}}{{pad (printf "%d°F" .TemperatureF) 8}}{{.Summary}}
{{end}}min: {{.Stats.Min}}°C, max: {{.Stats.Max}}°C, mean: {{floatFormat .Stats.Mean 1}}°C`
)

// Config represents the application's configuration structure.
type Config struct {
	APIBaseURL string        `fig:"api_base_url" default:"http://localhost:5000"`
	APITimeout time.Duration `fig:"api_timeout" default:"10s"`
	LogLevel   slog.Level    `fig:"loglevel" default:"0"`

	// EnableLogging turns on per-request debug logging in the transport client
	EnableLogging bool `fig:"enable_logging"`

	Retry struct {
		// MaxAttempts is the number of additional attempts after the initial request
		MaxAttempts uint `fig:"max_attempts" default:"2"`
	} `fig:"retry"`

	Intervals struct {
		Refresh time.Duration `fig:"refresh" default:"15m"`
		Output  time.Duration `fig:"output" default:"30s"`
	} `fig:"intervals"`

	Templates struct {
		Text string `fig:"text"`
	} `fig:"templates"`

	Server struct {
		Addr string `fig:"addr" default:":5000"`
		// Days is the number of forecast days the stub backend generates
		Days uint `fig:"days" default:"5"`
	} `fig:"server"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base url must not be empty")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("invalid api timeout: %s", c.APITimeout)
	}
	if c.Retry.MaxAttempts > 10 {
		return fmt.Errorf("invalid retry attempts: %d", c.Retry.MaxAttempts)
	}
	if c.Server.Days < 1 || c.Server.Days > 31 {
		return fmt.Errorf("invalid forecast days: %d", c.Server.Days)
	}
	if c.Templates.Text == "" {
		c.Templates.Text = DefaultTextTpl
	}

	return nil
}
