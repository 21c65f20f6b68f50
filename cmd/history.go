package main

import (
	"context"
	"fmt"

	"github.com/dcheno/flickrup/internal/repositories"
	"github.com/dcheno/flickrup/internal/shared"
	"github.com/urfave/cli/v3"
)

// openHistory opens the history database and returns a repository over it.
// The caller owns the returned close function.
func (r *Runner) openHistory() (*repositories.UploadRepository, func(), error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repositories.NewUploadRepository(db), func() { db.Close() }, nil
}

// History reports past upload runs from the local database.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	repo, closeDB, err := r.openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	if runID := cmd.String("run"); runID != "" {
		uploads, err := repo.ListByRun(runID)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(uploads, cmd.Bool("pretty"))
		}

		r.writePlainHeader(fmt.Sprintf("Run %s", runID))
		if len(uploads) == 0 {
			return r.writePlain("No uploads recorded for this run.\n")
		}
		for _, u := range uploads {
			r.writePlain("%s  %s  photo %s\n", u.UploadedAt.Format("2006-01-02 15:04:05"), u.Title, u.PhotoID)
		}
		return nil
	}

	if cmd.Bool("runs") {
		runs, err := repo.ListRuns()
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(runs, cmd.Bool("pretty"))
		}

		r.writePlainHeader("Upload Runs")
		if len(runs) == 0 {
			return r.writePlain("No runs recorded.\n")
		}
		for _, run := range runs {
			r.writePlain("%s  %d uploads  %s\n", run.RunID, run.Uploads, run.EndedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	uploads, err := repo.ListRecent(cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(uploads, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Recent Uploads")
	if len(uploads) == 0 {
		return r.writePlain("No uploads recorded.\n")
	}
	for _, u := range uploads {
		r.writePlain("%s  %s  photo %s  run %s\n", u.UploadedAt.Format("2006-01-02 15:04:05"), u.Title, u.PhotoID, u.RunID)
	}

	return nil
}

// historyCommand reports recorded uploads
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show locally recorded upload history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "run",
				Usage: "Show uploads recorded by one run",
			},
			&cli.BoolFlag{
				Name:  "runs",
				Usage: "Summarize runs instead of listing uploads",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of uploads to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.History,
	}
}
