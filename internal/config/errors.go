package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while still getting a human-readable message.
var (
	// ErrNoStartURL is returned when no start URL is given.
	ErrNoStartURL = errors.New("no start url specified")

	// ErrInvalidStartURL is returned when the start URL is not an absolute http(s) URL.
	ErrInvalidStartURL = errors.New("invalid start url: must be an absolute http or https url")

	// ErrStartURLOutsidePrefix is returned when the start URL path does not
	// begin with the path prefix. Such a crawl could never fetch anything.
	ErrStartURLOutsidePrefix = errors.New("start url is outside the path prefix")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxPages is returned when max pages is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidDelay is returned when the delay override is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrNoOutDir is returned when the output directory is empty.
	ErrNoOutDir = errors.New("no output directory specified")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one summary format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
