package exporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/wikiexport/internal/model"
)

const (
	// PagesDirName is the page directory below the output directory.
	PagesDirName = "pages"

	// ManifestFileName is the manifest file in the output directory.
	ManifestFileName = "manifest.jsonl"

	// SeenFileName is the visited-URL file in the output directory.
	SeenFileName = "seen_urls.txt"
)

// Exporter writes page documents and manifest records.
// Write and AppendManifest are safe for concurrent use; manifest appends
// are serialized in call order.
type Exporter struct {
	outDir       string
	pagesDir     string
	manifestPath string
	seenPath     string

	mu       sync.Mutex
	manifest *os.File
}

// frontMatter is the header block of a page document.
type frontMatter struct {
	Title     string `yaml:"title"`
	SourceURL string `yaml:"source_url"`
	FetchedAt string `yaml:"fetched_at"`
}

// New creates the output layout under outDir and opens the manifest for
// appending. Failure here is fatal for a crawl.
func New(outDir string) (*Exporter, error) {
	pagesDir := filepath.Join(outDir, PagesDirName)
	if err := os.MkdirAll(pagesDir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateOutputDir, err)
	}

	manifestPath := filepath.Join(outDir, ManifestFileName)
	manifest, err := os.OpenFile(manifestPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // path is built from the output directory
	if err != nil {
		return nil, fmt.Errorf("%w: open manifest: %w", ErrCreateOutputDir, err)
	}

	return &Exporter{
		outDir:       outDir,
		pagesDir:     pagesDir,
		manifestPath: manifestPath,
		seenPath:     filepath.Join(outDir, SeenFileName),
		manifest:     manifest,
	}, nil
}

// OutDir returns the output directory.
func (e *Exporter) OutDir() string { return e.outDir }

// PagesDir returns the page directory.
func (e *Exporter) PagesDir() string { return e.pagesDir }

// ManifestPath returns the manifest path.
func (e *Exporter) ManifestPath() string { return e.manifestPath }

// SeenPath returns the visited-URL file path.
func (e *Exporter) SeenPath() string { return e.seenPath }

// Write writes doc to its page file and returns the path relative to
// PagesDir, which is what the manifest records as md_path.
// Rewriting the same URL replaces the previous file.
func (e *Exporter) Write(doc model.PageDocument) (string, error) {
	name := FilenameFor(doc.SourceURL)

	content, err := RenderPage(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWritePage, err)
	}
	if err := writeFileAtomic(filepath.Join(e.pagesDir, name), content); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWritePage, name, err)
	}
	return name, nil
}

// RenderPage renders the YAML front matter followed by the body.
func RenderPage(doc model.PageDocument) ([]byte, error) {
	header, err := yaml.Marshal(frontMatter{
		Title:     doc.Title,
		SourceURL: doc.SourceURL.String(),
		FetchedAt: doc.FetchedAtString(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(doc.Body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// AppendManifest appends one record and syncs the manifest to disk before
// returning.
func (e *Exporter) AppendManifest(rec model.ManifestRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("%w: %w", ErrAppendManifest, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.manifest == nil {
		return ErrExporterClosed
	}
	if _, err := e.manifest.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %w", ErrAppendManifest, err)
	}
	if err := e.manifest.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", ErrAppendManifest, err)
	}
	return nil
}

// Export writes doc and appends its manifest record.
func (e *Exporter) Export(doc model.PageDocument) (model.ManifestRecord, error) {
	mdPath, err := e.Write(doc)
	if err != nil {
		return model.ManifestRecord{}, err
	}
	rec := model.NewManifestRecord(doc, mdPath)
	if err := e.AppendManifest(rec); err != nil {
		return model.ManifestRecord{}, err
	}
	return rec, nil
}

// Close closes the manifest.
func (e *Exporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.manifest == nil {
		return nil
	}
	err := e.manifest.Close()
	e.manifest = nil
	return err
}

// writeFileAtomic writes data to a temporary file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
