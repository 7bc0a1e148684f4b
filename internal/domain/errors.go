package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrBrewMissing indicates the brew executable is not on PATH
	ErrBrewMissing = errors.New("brew executable not found")

	// ErrPackageNotFound indicates the requested package does not exist
	ErrPackageNotFound = errors.New("package not found")

	// ErrPromptNotFound indicates no pending credential prompt matches the id
	ErrPromptNotFound = errors.New("credential prompt not found")

	// ErrBatchActive indicates a batch operation is already in progress
	ErrBatchActive = errors.New("a batch operation is already in progress")
)
