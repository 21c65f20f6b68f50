package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dcheno/flickrup/internal/catalog"
	"github.com/dcheno/flickrup/internal/services"
	"github.com/dcheno/flickrup/internal/shared"
)

// EngineOpts contains configuration for one upload run.
type EngineOpts struct {
	Dir             string // directory to upload photos from
	SetName         string // target photoset title (default: base name of Dir)
	Tags            string // space-delimited tags applied to every upload
	Workers         int    // concurrent uploads; must be positive
	Public          bool   // upload photos as public
	MaxErrorPercent int    // failure percentage tolerated before abort (default: 2)
	MaxErrors       int    // absolute failure cap; overrides MaxErrorPercent when > 0
}

// Engine drives one bounded-concurrency upload run. All state shared between
// workers (the photoset cache, the error counter, the cancellation flag)
// lives here behind one lock.
type Engine struct {
	svc      services.Service
	logger   *log.Logger
	recorder Recorder
	opts     EngineOpts
	cache    *SetCache
	runID    string

	mu       sync.Mutex
	state    RunState
	errors   int
	stopping bool
	abortErr error
}

// NewEngine creates an Engine for one run over opts.Dir.
func NewEngine(svc services.Service, logger *log.Logger, opts EngineOpts) (*Engine, error) {
	if svc == nil {
		return nil, fmt.Errorf("%w: remote service is required", shared.ErrInvalidConfig)
	}
	if opts.Workers <= 0 {
		return nil, fmt.Errorf("%w: worker count must be a positive integer, got %d", shared.ErrInvalidConfig, opts.Workers)
	}
	if opts.MaxErrorPercent <= 0 {
		opts.MaxErrorPercent = 2
	}
	if opts.SetName == "" {
		opts.SetName = filepath.Base(strings.TrimRight(opts.Dir, "/"))
	}
	opts.SetName = strings.TrimSpace(opts.SetName)
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Engine{
		svc:    svc,
		logger: logger,
		opts:   opts,
		cache:  NewSetCache(svc),
		runID:  shared.GenerateID(),
		state:  StateIdle,
	}, nil
}

// SetRecorder attaches an upload-history recorder. Optional.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// SetLogger replaces the engine's logger. Call before Run.
func (e *Engine) SetLogger(l *log.Logger) {
	if l != nil {
		e.logger = l
	}
}

// AbortReason returns why the run aborted, or nil after a clean run.
func (e *Engine) AbortReason() error {
	return e.abortReason()
}

// RunID returns the unique identifier of this run.
func (e *Engine) RunID() string {
	return e.runID
}

// SetName returns the resolved photoset title for this run.
func (e *Engine) SetName() string {
	return e.opts.SetName
}

// State returns the run's current lifecycle state.
func (e *Engine) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stop requests cooperative cancellation: no new uploads are admitted, tasks
// already in flight run to completion.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopping = true
}

func (e *Engine) setState(s RunState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
}

func (e *Engine) errorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errors
}

func (e *Engine) recordError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors++
}

func (e *Engine) stopRequested() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopping
}

// recordAbort stores the first abort reason; later reasons are ignored.
func (e *Engine) recordAbort(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.abortErr == nil {
		e.abortErr = err
	}
}

func (e *Engine) abortReason() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.abortErr
}

// errorBudget computes how many failures the run tolerates: an absolute cap
// when configured, otherwise ceil(total * MaxErrorPercent / 100).
func (e *Engine) errorBudget(total int) int {
	if e.opts.MaxErrors > 0 {
		return e.opts.MaxErrors
	}
	return (total*e.opts.MaxErrorPercent + 99) / 100
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Run executes the upload run to completion or early abort.
//
// Aborts are non-forcible: the run stops admitting new tasks but lets
// uploads already handed to a worker finish before returning.
//
// The returned RunResult is valid even when err is non-nil: on abort it
// reflects everything that finished before the run stopped admitting work.
func (e *Engine) Run(ctx context.Context, progress chan<- ProgressUpdate) (*RunResult, error) {
	result := &RunResult{RunID: e.runID, State: StateIdle}

	if err := e.svc.Authenticate(ctx); err != nil {
		e.setState(StateAborted)
		result.State = StateAborted
		return result, err
	}

	e.setState(StateScanning)
	candidates, err := catalog.ListCandidates(e.opts.Dir)
	if err != nil {
		e.setState(StateAborted)
		result.State = StateAborted
		return result, err
	}

	total := len(candidates)
	budget := e.errorBudget(total)
	result.Total = total
	result.ErrorBudget = budget
	e.sendProgress(progress, scanUpdate(total, e.opts.Dir))
	e.logger.Info("starting upload run", "run", e.runID, "dir", e.opts.Dir,
		"set", e.opts.SetName, "candidates", total, "workers", e.opts.Workers, "budget", budget)

	if total == 0 {
		e.setState(StateCompleted)
		result.State = StateCompleted
		return result, nil
	}

	jobs := make(chan UploadTask)
	results := make(chan TaskResult, total)

	var wg sync.WaitGroup
	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go e.worker(ctx, &wg, jobs, results, progress)
	}

	e.setState(StateDispatching)

	go func() {
		defer close(jobs)
		for i, path := range candidates {
			if e.errorCount() > budget {
				e.logger.Error("too many upload errors, aborting", "errors", e.errorCount(), "budget", budget)
				e.recordAbort(fmt.Errorf("%w: %d errors with budget %d", shared.ErrBudgetExceeded, e.errorCount(), budget))
				return
			}
			if e.stopRequested() || ctx.Err() != nil {
				e.logger.Warn("aborting uploads due to cancellation request")
				e.recordAbort(shared.ErrCancelled)
				return
			}

			task := UploadTask{
				Path:   path,
				Title:  catalog.Title(path),
				Tags:   e.opts.Tags,
				Public: e.opts.Public,
			}

			// Blocks while the pool is saturated: admission control.
			select {
			case jobs <- task:
				e.sendProgress(progress, dispatchUpdate(i+1, total, task.Title))
			case <-ctx.Done():
				e.logger.Warn("aborting uploads due to cancellation request")
				e.recordAbort(shared.ErrCancelled)
				return
			}
		}
		e.setState(StateDraining)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		switch res.Status {
		case TaskUploaded:
			result.Uploaded++
			e.sendProgress(progress, uploadedUpdate(completed, total, res))
		case TaskSkipped:
			result.Skipped++
			e.sendProgress(progress, skippedUpdate(completed, total, res))
			e.logger.Info("photo already uploaded", "title", res.Task.Title, "set", e.opts.SetName)
		case TaskFailed:
			result.Failed++
			e.sendProgress(progress, failedUpdate(completed, total, res))
			e.logger.Error("upload failed", "title", res.Task.Title, "error", res.Err)
		}
	}

	// Cancellation observed while draining still aborts the run, even though
	// in-flight uploads were allowed to finish.
	if e.abortReason() == nil && (e.stopRequested() || ctx.Err() != nil) {
		e.recordAbort(shared.ErrCancelled)
	}

	if err := e.abortReason(); err != nil {
		e.setState(StateAborted)
		result.State = StateAborted
		e.sendProgress(progress, summaryUpdate(result))
		return result, err
	}

	e.setState(StateCompleted)
	result.State = StateCompleted
	e.sendProgress(progress, summaryUpdate(result))
	if result.Failed > 0 {
		e.logger.Warn("finished all uploads with errors", "errors", result.Failed)
	} else {
		e.logger.Info("finished all uploads", "uploaded", result.Uploaded, "skipped", result.Skipped)
	}

	return result, nil
}

// worker consumes upload tasks until the jobs channel closes, reporting each
// outcome on results. Failures are counted here so the dispatch loop sees
// them before admitting the next task.
func (e *Engine) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan UploadTask, results chan<- TaskResult, progress chan<- ProgressUpdate) {
	defer wg.Done()

	for task := range jobs {
		res := e.uploadOne(ctx, task, progress)
		if res.Status == TaskFailed {
			e.recordError()
		}
		results <- res
	}
}

// uploadOne performs the per-task sequence: duplicate check, upload,
// photoset resolution, membership update. Any failure after the duplicate
// check counts as one error; nothing is retried within the run.
func (e *Engine) uploadOne(ctx context.Context, task UploadTask, progress chan<- ProgressUpdate) TaskResult {
	res := TaskResult{Task: task}

	set, err := e.cache.Get(ctx, e.opts.SetName)
	if err != nil {
		res.Status = TaskFailed
		res.Err = err
		return res
	}

	if set != nil {
		present, err := e.cache.Has(ctx, set, ByTitle(task.Title))
		if err != nil {
			res.Status = TaskFailed
			res.Err = err
			return res
		}
		if present {
			res.Status = TaskSkipped
			return res
		}
	}

	photoID, err := e.svc.Upload(ctx, services.UploadRequest{
		Path:   task.Path,
		Title:  task.Title,
		Tags:   task.Tags,
		Public: task.Public,
	})
	if err != nil {
		res.Status = TaskFailed
		res.Err = err
		return res
	}
	res.PhotoID = photoID

	if set == nil {
		var created bool
		set, created, err = e.cache.GetOrCreate(ctx, e.opts.SetName, photoID)
		if err != nil {
			res.Status = TaskFailed
			res.Err = err
			return res
		}
		if created {
			e.logger.Info("created photoset", "title", set.Title, "id", set.ID)
			e.sendProgress(progress, createdSetUpdate(set.Title, set.ID))
		}
	}

	if err := e.cache.Add(ctx, set, photoID); err != nil {
		res.Status = TaskFailed
		res.Err = err
		return res
	}

	res.Status = TaskUploaded

	if e.recorder != nil {
		rec := UploadRecord{
			RunID:      e.runID,
			PhotoID:    photoID,
			SetID:      set.ID,
			Title:      task.Title,
			SourcePath: task.Path,
			UploadedAt: time.Now().UTC(),
		}
		if err := e.recorder.RecordUpload(rec); err != nil {
			e.logger.Warn("failed to record upload history", "title", task.Title, "error", err)
		}
	}

	return res
}
