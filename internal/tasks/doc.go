// Package tasks implements the concurrent upload run.
//
// The core abstraction is Engine, which drives one directory upload to
// completion or early abort: a fixed worker pool pulls tasks from a bounded
// queue, each task consults the shared SetCache to skip photos already
// present remotely, and a lock-protected error counter aborts the run when
// failures cross the computed budget. Operations emit progress updates via
// channels for non-blocking status reporting to CLI/UI layers.
//
// Resumption needs no local state: the remote photoset is authoritative, so
// re-running the same directory skips everything already uploaded.
package tasks
