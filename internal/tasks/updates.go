package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during an upload run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Scan Phase = iota
	Dispatch
	Uploaded
	Skipped
	Failed
	CreatedSet
	Summary
)

func (p Phase) String() string {
	switch p {
	case Scan:
		return "scan"
	case Dispatch:
		return "dispatch"
	case Uploaded:
		return "uploaded"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case CreatedSet:
		return "created_set"
	case Summary:
		return "summary"
	default:
		return ""
	}
}

func scanUpdate(total int, dir string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Scan,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Found %d photos in %s", total, dir),
	}
}

func dispatchUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Dispatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Uploading %s", step, total, title),
	}
}

func uploadedUpdate(step, total int, res TaskResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Uploaded,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (photo %s)", step, total, res.Task.Title, res.PhotoID),
		Data:    res,
	}
}

func skippedUpdate(step, total int, res TaskResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Skipped,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] – %s already uploaded", step, total, res.Task.Title),
		Data:    res,
	}
}

func failedUpdate(step, total int, res TaskResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Task.Title, res.Err),
		Data:    res,
	}
}

func createdSetUpdate(title, setID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatedSet,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Created photoset %q (ID: %s)", title, setID),
	}
}

func summaryUpdate(result *RunResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: Summary,
		Step:  result.Total,
		Total: result.Total,
		Message: fmt.Sprintf("%s: %d uploaded, %d skipped, %d failed",
			result.State, result.Uploaded, result.Skipped, result.Failed),
		Data: result,
	}
}
