package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/dcheno/flickrup/internal/services"
	"github.com/dcheno/flickrup/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	var flickr *services.FlickrService
	if config.Credentials.Flickr.APIKey != "" && config.Credentials.Flickr.APISecret != "" {
		if svc, err := services.NewFlickrService(config.Credentials.Flickr); err == nil {
			flickr = svc
		} else {
			logger.Warn("failed to initialize flickr service", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Flickr:     flickr,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:    "flickrup",
		Usage:   "Resumable bulk photo uploads from a directory to Flickr",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	// SIGINT/SIGTERM cancel the context; in-flight uploads drain before exit.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrBudgetExceeded), errors.Is(err, shared.ErrCancelled):
			logger.Error("run aborted", "error", err)
			os.Exit(1)
		case errors.Is(err, shared.ErrInvalidConfig), errors.Is(err, shared.ErrMissingCredentials),
			errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument):
			logger.Error("configuration error", "error", err)
			os.Exit(2)
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			os.Exit(0)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
