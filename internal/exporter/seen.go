package exporter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/nao1215/wikiexport/internal/model"
)

// maxLineSize bounds a single line when reading files back.
const maxLineSize = 1024 * 1024

// LoadSeen reads a visited-URL file. A missing file is an empty list.
// Blank lines are skipped and lines are trimmed.
func LoadSeen(path string) ([]model.CrawlURL, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the output directory
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open seen file: %w", err)
	}
	defer f.Close()

	var urls []model.CrawlURL
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, model.CrawlURL(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seen file: %w", err)
	}
	return urls, nil
}

// SaveSeen writes urls sorted, one per line, replacing the file atomically.
func SaveSeen(path string, urls []model.CrawlURL) error {
	sorted := slices.Clone(urls)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var buf bytes.Buffer
	for _, u := range sorted {
		if u == "" {
			continue
		}
		buf.WriteString(u.String())
		buf.WriteByte('\n')
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write seen file: %w", err)
	}
	return nil
}

// ReadManifest reads all records from a manifest file.
// A missing file yields no records.
func ReadManifest(path string) ([]model.ManifestRecord, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the output directory
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var records []model.ManifestRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec model.ManifestRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return records, nil
}
