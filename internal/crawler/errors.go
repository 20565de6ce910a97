package crawler

import "errors"

var (
	// ErrFatal wraps conditions that abort a run: the output directory cannot
	// be created, a page or manifest record cannot be written, or the seen
	// file cannot be read or saved.
	ErrFatal = errors.New("fatal crawl error")

	// ErrAlreadyRun is returned when Run is called twice on the same Engine.
	ErrAlreadyRun = errors.New("engine has already run")
)
