package tasks

import (
	"time"
)

// UploadTask represents one file to upload: created during dispatch, consumed
// exactly once by a worker, discarded after completion.
type UploadTask struct {
	Path   string // local source path
	Title  string // remote title derived from the filename
	Tags   string // space-delimited tags
	Public bool   // visibility of the uploaded photo
}

// TaskStatus is the terminal status of one upload task.
type TaskStatus int

const (
	TaskUploaded TaskStatus = iota // uploaded and recorded in the photoset
	TaskSkipped                    // title already present remotely, nothing sent
	TaskFailed                     // upload or membership update failed
)

func (s TaskStatus) String() string {
	switch s {
	case TaskUploaded:
		return "uploaded"
	case TaskSkipped:
		return "skipped"
	case TaskFailed:
		return "failed"
	default:
		return ""
	}
}

// TaskResult is the outcome of one upload task.
type TaskResult struct {
	Task    UploadTask
	PhotoID string // remotely assigned ID, empty unless uploaded
	Status  TaskStatus
	Err     error // set when Status == TaskFailed
}

// RunState tracks where a run is in its lifecycle.
type RunState int

const (
	StateIdle RunState = iota
	StateScanning
	StateDispatching
	StateDraining
	StateCompleted
	StateAborted
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateDispatching:
		return "dispatching"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return ""
	}
}

// RunResult contains all data from one upload run.
type RunResult struct {
	RunID       string       // unique identifier for this run
	State       RunState     // terminal state: StateCompleted or StateAborted
	Total       int          // candidate files found
	Uploaded    int          // files uploaded this run
	Skipped     int          // files already present remotely
	Failed      int          // files that failed to upload
	ErrorBudget int          // failures tolerated before abort
	Results     []TaskResult // per-task outcomes in completion order
}

// UploadRecord describes one successful upload for history persistence.
type UploadRecord struct {
	RunID      string
	PhotoID    string
	SetID      string
	Title      string
	SourcePath string
	UploadedAt time.Time
}

// Recorder persists successful uploads for later reporting. Recording
// failures never count against the run's error budget.
type Recorder interface {
	RecordUpload(rec UploadRecord) error
}
