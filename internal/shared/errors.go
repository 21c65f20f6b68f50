package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrDirectoryNotFound  = fmt.Errorf("directory not found")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// API and upload errors
	ErrAPIRequest   = fmt.Errorf("API request failed")
	ErrUploadFailed = fmt.Errorf("upload failed")
	ErrNotFound     = fmt.Errorf("not found")

	// Run abort conditions
	ErrBudgetExceeded = fmt.Errorf("error budget exceeded")
	ErrCancelled      = fmt.Errorf("run cancelled")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
