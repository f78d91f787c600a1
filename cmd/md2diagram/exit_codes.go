package main

import (
	"errors"
	"os"

	md2diagram "github.com/alnah/go-md2diagram"
	"github.com/alnah/go-md2diagram/internal/config"
	"github.com/alnah/go-md2diagram/internal/llm"
)

// Exit codes for md2diagram CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess    = 0 // Both stages ran; per-diagram failures included
	ExitGeneral    = 1 // General/unexpected error
	ExitUsage      = 2 // Invalid flags, config, or missing input argument
	ExitIO         = 3 // File not found, permission denied
	ExitBrowser    = 4 // Browser/Chrome errors
	ExitCredential = 5 // Provider API key missing
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Credential errors (exit 5)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return ExitCredential
	}

	// Browser errors (exit 4)
	if errors.Is(err, md2diagram.ErrBrowserConnect) ||
		errors.Is(err, md2diagram.ErrPageCreate) ||
		errors.Is(err, md2diagram.ErrPageLoad) {
		return ExitBrowser
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrConflictingStages) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, llm.ErrUnknownProvider) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	return ExitGeneral
}
