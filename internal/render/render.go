// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

// Package render turns orchestrator states into plain-text output.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/mattn/go-runewidth"

	"github.com/forecastpipe/forecastpipe/internal/config"
	"github.com/forecastpipe/forecastpipe/internal/forecast"
	"github.com/forecastpipe/forecastpipe/internal/orchestrator"
)

// DisplayData is the template context for the loaded phase
type DisplayData struct {
	Forecast []forecast.Record
	Stats    forecast.Stats
}

// Renderer renders orchestrator states using the configured text template
type Renderer struct {
	tpl *template.Template
}

// New parses the configured text template and returns a Renderer
func New(conf *config.Config) (*Renderer, error) {
	tpl, err := template.New("text").Funcs(templateFuncMap()).Parse(conf.Templates.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	return &Renderer{tpl: tpl}, nil
}

// State writes the rendered representation of the given state to w. Error
// states render the user message only, never internal details.
func (r *Renderer) State(w io.Writer, state orchestrator.State) error {
	switch state.Phase {
	case orchestrator.PhaseInitial:
		_, err := fmt.Fprintln(w, "No forecast loaded yet.")
		return err
	case orchestrator.PhaseLoading:
		_, err := fmt.Fprintln(w, "Loading forecast ...")
		return err
	case orchestrator.PhaseError:
		_, err := fmt.Fprintln(w, state.Message)
		return err
	case orchestrator.PhaseLoaded:
		data := DisplayData{Forecast: state.Records, Stats: state.Stats}
		if err := r.tpl.Execute(w, data); err != nil {
			return fmt.Errorf("failed to render text template: %w", err)
		}
		_, err := fmt.Fprintln(w)
		return err
	}
	return fmt.Errorf("unhandled state phase: %d", state.Phase)
}

func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"dateFormat":  dateFormat,
		"floatFormat": floatFormat,
		"pad":         pad,
		"lc":          strings.ToLower,
		"uc":          strings.ToUpper,
	}
}

func dateFormat(val forecast.Date, layout string) string {
	return val.Format(layout)
}

func floatFormat(val float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, val)
}

// pad right-pads val with spaces to the given display width. Width is measured
// with runewidth so wide runes keep columns aligned.
func pad(val string, width int) string {
	w := runewidth.StringWidth(val)
	if w >= width {
		return val + " "
	}
	return val + strings.Repeat(" ", width-w)
}
