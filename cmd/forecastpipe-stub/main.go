// SPDX-FileCopyrightText: The forecastpipe authors
//
// SPDX-License-Identifier: MIT

// Package main implements the forecast backend stub.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/forecastpipe/forecastpipe/internal/config"
	"github.com/forecastpipe/forecastpipe/internal/logger"
	"github.com/forecastpipe/forecastpipe/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer cancel()

	log := logger.New(slog.LevelError)

	// Load a .env file when present, then read the config
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to load .env file", logger.Err(err))
	}

	confPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	conf, err := config.New()
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}
	if *confPath != "" {
		conf, err = config.NewFromFile(filepath.Dir(*confPath), filepath.Base(*confPath))
		if err != nil {
			log.Error("failed to load config from file", logger.Err(err))
			os.Exit(1)
		}
	}

	log = logger.New(conf.LogLevel)

	log.Info("starting forecastpipe backend stub", slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date))
	if err = server.New(conf, log).Run(ctx); err != nil {
		log.Error("failed to run forecast backend", logger.Err(err))
		os.Exit(1)
	}
	log.Info("shutting down forecastpipe backend stub")
}
