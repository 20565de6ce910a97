package database

import "errors"

var (
	// ErrDatabaseNotFound is returned when the history database does not exist
	// and Options.CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("crawl history database not found")

	// ErrRunNotFound is returned when a run ID has no row.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunNotStarted is returned when a Recorder is used before Begin.
	ErrRunNotStarted = errors.New("recorder has no active run")
)
