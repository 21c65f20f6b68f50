// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a three-view workflow for an upload run:
//  1. [ConfirmView] : Review the directory, photoset, and options before starting
//  2. [RunView] : Monitor real-time per-photo progress with a progress bar
//  3. [ResultView] : Display the run summary and any failures
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the upload Engine, providing
// non-blocking status reporting while workers upload.
//
// Pressing q during a run requests cooperative cancellation: in-flight uploads
// finish, nothing new starts.
package ui
