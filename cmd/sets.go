package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// SetsList prints all photosets of the authenticated user.
func (r *Runner) SetsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	r.logger.Info("listing photosets")

	sets, err := r.service.ListSets(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(sets, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Photosets")
	if len(sets) == 0 {
		return r.writePlain("No photosets found.\n")
	}
	for _, set := range sets {
		r.writePlain("%s  %s\n", set.ID, set.Title)
		if set.Description != "" {
			r.writePlain("    %s\n", set.Description)
		}
	}

	return nil
}

// setsCommand handles photoset listing
func setsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sets",
		Usage: "Inspect remote photosets",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all photosets",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.SetsList,
			},
		},
	}
}
