package main

import (
	"context"
	"fmt"

	"github.com/dcheno/flickrup/internal/repositories"
	"github.com/dcheno/flickrup/internal/services"
	"github.com/dcheno/flickrup/internal/shared"
	"github.com/dcheno/flickrup/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Upload runs a full directory → photoset upload.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String("config"); path != "" {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
		r.config = config
		if svc, err := services.NewFlickrService(config.Credentials.Flickr); err == nil {
			r.flickr = svc
			r.service = svc
		}
	}

	if err := r.requireService(); err != nil {
		return err
	}

	dir := cmd.StringArg("dir")
	if dir == "" {
		return fmt.Errorf("%w: directory argument is required", shared.ErrMissingArgument)
	}

	opts := tasks.EngineOpts{
		Dir:             dir,
		SetName:         cmd.String("set"),
		Tags:            cmd.String("tags"),
		Workers:         cmd.Int("workers"),
		Public:          cmd.Bool("public"),
		MaxErrorPercent: r.config.Upload.MaxErrorPercent,
		MaxErrors:       cmd.Int("max-errors"),
	}
	if opts.Workers <= 0 {
		opts.Workers = r.config.Upload.Workers
	}
	if opts.Tags == "" {
		opts.Tags = r.config.Upload.Tags
	}
	if !cmd.IsSet("public") {
		opts.Public = r.config.Upload.Public
	}

	engine, err := tasks.NewEngine(r.service, r.logger, opts)
	if err != nil {
		return err
	}

	// History is best-effort: a broken database disables recording, never
	// the run itself.
	if db, err := shared.NewDatabase(r.config.Database.Path); err != nil {
		r.logger.Warn("upload history disabled", "error", err)
	} else {
		defer db.Close()
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			r.logger.Warn("upload history disabled", "error", err)
		} else {
			engine.SetRecorder(repositories.NewUploadRepository(db))
		}
	}

	if cmd.Bool("tui") {
		return r.runTUI(ctx, engine, opts)
	}

	r.writePlain("Uploading %s to photoset %q with %d workers\n\n", opts.Dir, engine.SetName(), opts.Workers)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.Scan, tasks.CreatedSet:
				r.writePlain("%s\n", update.Message)
			case tasks.Uploaded, tasks.Skipped, tasks.Failed:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, runErr := engine.Run(ctx, progressCh)
	close(progressCh)
	<-done

	r.writePlain("\n")
	r.writePlainHeader(fmt.Sprintf("Run %s", result.State))
	r.writePlain("Candidates: %d (error budget %d)\n", result.Total, result.ErrorBudget)
	r.writePlain("Uploaded: %d\n", result.Uploaded)
	r.writePlain("Skipped: %d\n", result.Skipped)
	r.writePlain("Failed: %d\n", result.Failed)

	if result.Failed > 0 {
		r.writePlain("\nFailed photos:\n")
		for _, res := range result.Results {
			if res.Status == tasks.TaskFailed {
				r.writePlain("  - %s: %v\n", res.Task.Title, res.Err)
			}
		}
	}

	return runErr
}

// uploadCommand uploads a directory of photos into a photoset
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Upload all photos in a directory to a photoset, skipping ones already there",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "dir",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "set",
				Aliases: []string{"s"},
				Usage:   "Photoset title (defaults to the directory name)",
			},
			&cli.StringFlag{
				Name:  "tags",
				Usage: "Space-delimited tags applied to every upload",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of concurrent uploads",
			},
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Upload photos as public instead of private",
			},
			&cli.IntFlag{
				Name:  "max-errors",
				Usage: "Abort after this many failures (overrides the percentage budget)",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show an interactive progress view",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
		},
		Action: r.Upload,
	}
}
