package exporter

import "errors"

var (
	// ErrCreateOutputDir is returned when the output directory cannot be created.
	ErrCreateOutputDir = errors.New("failed to create output directory")

	// ErrWritePage is returned when a page document cannot be written.
	ErrWritePage = errors.New("failed to write page")

	// ErrAppendManifest is returned when a manifest record cannot be appended.
	ErrAppendManifest = errors.New("failed to append manifest record")

	// ErrExporterClosed is returned after Close.
	ErrExporterClosed = errors.New("exporter is closed")
)
