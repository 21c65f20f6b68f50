package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dcheno/flickrup/internal/shared"
	"github.com/dcheno/flickrup/internal/tasks"
	"github.com/dcheno/flickrup/internal/ui"
)

// runTUI drives an upload run through the interactive progress view.
func (r *Runner) runTUI(ctx context.Context, engine *tasks.Engine, opts tasks.EngineOpts) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/flickrup-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	engine.SetLogger(fileLogger)

	opts.SetName = engine.SetName()
	model := ui.NewModel(ctx, engine, opts)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	// The run's abort reason still decides the exit code after the TUI
	// closes. A cancelled run surfaces ErrCancelled so it never looks like
	// a clean completion.
	return engine.AbortReason()
}
