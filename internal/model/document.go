package model

import "time"

// PageDocument is the result of extracting one fetched page.
// It is created by the extractor, consumed by the exporter and never
// mutated in between.
type PageDocument struct {
	// SourceURL is the URL the page was fetched from.
	SourceURL CrawlURL `json:"source_url"`

	// Title is never empty. It falls back from the page heading to the
	// <title> element and finally to the raw URL.
	Title string `json:"title"`

	// Body is the structured text of the main content area.
	Body string `json:"body"`

	// FetchedAt is when the fetch completed, in UTC.
	FetchedAt time.Time `json:"fetched_at"`
}

// NewPageDocument builds a PageDocument, applying the URL fallback for an
// empty title and normalizing the timestamp to UTC.
func NewPageDocument(source CrawlURL, title, body string, fetchedAt time.Time) PageDocument {
	if title == "" {
		title = source.String()
	}
	return PageDocument{
		SourceURL: source,
		Title:     title,
		Body:      body,
		FetchedAt: fetchedAt.UTC(),
	}
}

// FetchedAtString formats FetchedAt the way it is written to page headers
// and the manifest.
func (d PageDocument) FetchedAtString() string {
	return d.FetchedAt.UTC().Format(time.RFC3339)
}

// ManifestRecord is one line of manifest.jsonl. Records are appended in
// strict export order and never rewritten.
type ManifestRecord struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	MDPath    string `json:"md_path"`
	FetchedAt string `json:"fetched_at"`
}

// NewManifestRecord creates the manifest entry for an exported document.
// mdPath is relative to the pages directory.
func NewManifestRecord(doc PageDocument, mdPath string) ManifestRecord {
	return ManifestRecord{
		URL:       doc.SourceURL.String(),
		Title:     doc.Title,
		MDPath:    mdPath,
		FetchedAt: doc.FetchedAtString(),
	}
}
