// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

// Package service wires the transport client, repository, orchestrator and
// renderer into the long-running forecast client.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/forecastpipe/forecastpipe/internal/config"
	"github.com/forecastpipe/forecastpipe/internal/forecast"
	"github.com/forecastpipe/forecastpipe/internal/logger"
	"github.com/forecastpipe/forecastpipe/internal/orchestrator"
	"github.com/forecastpipe/forecastpipe/internal/render"
	"github.com/forecastpipe/forecastpipe/internal/transport"
)

const (
	// repositoryRPS limits how often the repository may hit the backend
	repositoryRPS   = 1.0
	repositoryBurst = 3

	stateBufferSize = 32
)

type Service struct {
	config       *config.Config
	logger       *logger.Logger
	client       *transport.Client
	orchestrator *orchestrator.Orchestrator
	renderer     *render.Renderer
	scheduler    gocron.Scheduler
	output       io.Writer
}

func New(conf *config.Config, log *logger.Logger) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	renderer, err := render.New(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	client := transport.New(conf, log)
	fetcher := transport.NewRetrier(client, conf.Retry.MaxAttempts)
	repository := forecast.NewRateLimitedRepository(forecast.NewRepository(fetcher),
		repositoryRPS, repositoryBurst)

	service := &Service{
		config:       conf,
		logger:       log,
		client:       client,
		orchestrator: orchestrator.New(repository, log),
		renderer:     renderer,
		scheduler:    scheduler,
		output:       os.Stdout,
	}
	return service, nil
}

func (s *Service) Run(ctx context.Context) error {
	// Start scheduled jobs
	if err := s.createScheduledJob(ctx, s.config.Intervals.Refresh, s.refreshForecast,
		"forecast_refresh_job"); err != nil {
		return err
	}
	if err := s.createScheduledJob(ctx, s.config.Intervals.Output, s.printState,
		"forecast_output_job"); err != nil {
		return err
	}
	s.scheduler.Start()

	// Start the intent loop and subscribe to its state updates
	go s.orchestrator.Run(ctx)
	sub, unsub := s.orchestrator.Subscribe(stateBufferSize)
	go s.processStateUpdates(ctx, sub)

	// Kick off the initial load
	s.orchestrator.Dispatch(orchestrator.Load())

	// Wait for the context to cancel
	<-ctx.Done()
	unsub()
	return s.scheduler.Shutdown()
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// refreshForecast dispatches a refresh intent. The orchestrator queues it
// behind any intent still in flight.
func (s *Service) refreshForecast(context.Context) {
	if !s.orchestrator.Dispatch(orchestrator.Refresh()) {
		s.logger.Warn("refresh intent was rejected by the orchestrator")
	}
}

// printState renders the current orchestrator state to the output writer.
// Nothing is printed before the first fetch has settled.
func (s *Service) printState(context.Context) {
	state := s.orchestrator.Current()
	if state.Phase == orchestrator.PhaseInitial || state.Phase == orchestrator.PhaseLoading {
		return
	}
	if err := s.renderer.State(s.output, state); err != nil {
		s.logger.Error("failed to render state", logger.Err(err))
	}
}

// processStateUpdates renders settled states as soon as the orchestrator
// publishes them, so output does not wait for the next output interval.
func (s *Service) processStateUpdates(ctx context.Context, sub <-chan orchestrator.State) {
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-sub:
			if !ok {
				return
			}
			if state.Phase != orchestrator.PhaseLoaded && state.Phase != orchestrator.PhaseError {
				continue
			}
			if err := s.renderer.State(s.output, state); err != nil {
				s.logger.Error("failed to render state", logger.Err(err))
			}
		}
	}
}
