package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dcheno/flickrup/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	RunView
	ResultView
)

// recentLines caps how many per-photo outcomes stay on screen.
const recentLines = 6

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	view   ViewState
	engine *tasks.Engine
	opts   tasks.EngineOpts

	width  int
	height int

	spinner spinner.Model
	bar     progress.Model

	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	total        int
	completed    int
	uploaded     int
	skipped      int
	failed       int
	recent       []string

	stopping bool
	result   *tasks.RunResult
	err      error

	help help.Model
	keys keyMap
}

type progressUpdateMsg tasks.ProgressUpdate

type runCompleteMsg struct {
	result *tasks.RunResult
	err    error
}

// NewModel creates a new TUI model for one upload run. The engine is not
// started until the user confirms.
func NewModel(ctx context.Context, engine *tasks.Engine, opts tasks.EngineOpts) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = NewStyle("#7D56F4")

	return &Model{
		ctx:     ctx,
		view:    ConfirmView,
		engine:  engine,
		opts:    opts,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the spinner; the run itself waits for confirmation.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 8
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case RunView:
			return m.handleRunKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		m.applyProgress(m.progress)
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.view = RunView
		return m, m.startRun()
	case "n", "q", "ctrl+c", "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleRunKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		// Cooperative cancellation: in-flight uploads finish first.
		m.engine.Stop()
		m.stopping = true
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "enter", "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 64)

	go func() {
		result, err := m.engine.Run(m.ctx, m.progressChan)
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return runCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return runCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) applyProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.Scan:
		m.total = update.Total
	case tasks.Uploaded:
		m.completed = update.Step
		m.uploaded++
		m.pushRecent(styles.ok.Render("✓ ") + update.Message)
	case tasks.Skipped:
		m.completed = update.Step
		m.skipped++
		m.pushRecent(styles.help.Render("– ") + update.Message)
	case tasks.Failed:
		m.completed = update.Step
		m.failed++
		m.pushRecent(styles.err.Render("✗ ") + update.Message)
	case tasks.CreatedSet:
		m.pushRecent(styles.warn.Render("+ ") + update.Message)
	}
}

func (m *Model) pushRecent(line string) {
	m.recent = append(m.recent, line)
	if len(m.recent) > recentLines {
		m.recent = m.recent[len(m.recent)-recentLines:]
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Upload %s to photoset %q?", m.opts.Dir, m.opts.SetName))

	visibility := "private"
	if m.opts.Public {
		visibility = "public"
	}
	info := fmt.Sprintf("\nWorkers: %d\nVisibility: %s\n", m.opts.Workers, visibility)
	if m.opts.Tags != "" {
		info += fmt.Sprintf("Tags: %s\n", m.opts.Tags)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderRun() string {
	title := styles.title.Render(fmt.Sprintf("Uploading to %q", m.opts.SetName))

	status := fmt.Sprintf("%s %s", m.spinner.View(), m.progress.Message)
	if m.stopping {
		status = styles.warn.Render("Cancelling: waiting for in-flight uploads to finish...")
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.completed) / float64(m.total)
	}
	bar := m.bar.ViewAs(pct)

	counts := fmt.Sprintf("%d/%d done • %d uploaded • %d skipped • %d failed",
		m.completed, m.total, m.uploaded, m.skipped, m.failed)

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.cancel})

	return fmt.Sprintf("%s\n%s\n\n%s\n%s\n\n%s\n\n%s",
		title, status, bar, styles.help.Render(counts), strings.Join(m.recent, "\n"), helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})

	if m.result == nil && m.err != nil {
		return fmt.Sprintf("%s\n\n%s",
			styles.err.Render(fmt.Sprintf("Run failed: %v", m.err)), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	var title string
	switch {
	case m.err != nil:
		title = styles.err.Render(fmt.Sprintf("✗ Run aborted: %v", m.err))
	case m.result.Failed > 0:
		title = styles.warn.Render("Run completed with errors")
	default:
		title = styles.ok.Render("✓ Run complete")
	}

	info := fmt.Sprintf("\nCandidates: %d\nUploaded: %d\nSkipped: %d\nFailed: %d\n",
		m.result.Total, m.result.Uploaded, m.result.Skipped, m.result.Failed)

	var failures string
	if m.result.Failed > 0 {
		var sb strings.Builder
		sb.WriteString("\n" + styles.warn.Render("Failed photos:"))
		for _, res := range m.result.Results {
			if res.Status == tasks.TaskFailed {
				sb.WriteString(fmt.Sprintf("\n  • %s: %v", res.Task.Title, res.Err))
			}
		}
		failures = sb.String()
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failures, helpView)
}
