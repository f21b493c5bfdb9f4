// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

// Package server implements the thin backend stub serving the weather forecast
// endpoint the client pipeline fetches from.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/forecastpipe/forecastpipe/internal/config"
	"github.com/forecastpipe/forecastpipe/internal/forecast"
	"github.com/forecastpipe/forecastpipe/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// summaries is the canonical set of forecast summaries the stub draws from
var summaries = []string{
	"Freezing", "Bracing", "Chilly", "Cool", "Mild",
	"Warm", "Balmy", "Hot", "Sweltering", "Scorching",
}

// Server serves randomly generated forecast data over HTTP
type Server struct {
	server *http.Server
	logger *logger.Logger
	days   int
}

// New returns a new stub Server configured from the given Config
func New(conf *config.Config, log *logger.Logger) *Server {
	mux := http.NewServeMux()
	server := &Server{
		logger: log,
		days:   int(conf.Server.Days),
		server: &http.Server{
			Addr:              conf.Server.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	mux.HandleFunc("/WeatherForecast", server.handleForecast)
	mux.HandleFunc("/healthz", server.handleHealth)

	return server
}

// Handler returns the server's HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	s.logger.Info("forecast backend listening", slog.String("addr", s.server.Addr))

	select {
	case err := <-errChan:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// handleForecast answers GET /WeatherForecast with a JSON array of generated
// forecast records, one per day starting tomorrow.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := time.Now()
	records := make([]forecast.Record, 0, s.days)
	for i := 1; i <= s.days; i++ {
		day := now.AddDate(0, 0, i)
		celsius := rand.IntN(75) - 20
		records = append(records, forecast.Record{
			Date:         forecast.NewDate(day.Year(), day.Month(), day.Day()),
			TemperatureC: celsius,
			TemperatureF: forecast.FahrenheitFromCelsius(celsius),
			Summary:      summaries[rand.IntN(len(summaries))],
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		s.logger.Error("failed to encode forecast response", logger.Err(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		s.logger.Error("failed to encode health response", logger.Err(err))
	}
}
