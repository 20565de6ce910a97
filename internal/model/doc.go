// Package model defines the core data structures shared by the wikiexport
// crawl engine.
//
// This package contains the following main types:
//   - CrawlURL: A normalized absolute URL used as the frontier and visited-set key
//   - PageDocument: The structured text extracted from one fetched page
//   - ManifestRecord: One line of the append-only manifest
//   - Outcome: What happened to a dequeued URL (exported or why it was skipped)
//   - RunSummary: Counters and locations reported when a crawl finishes
//
// The types live in their own package so that the frontier, extractor,
// exporter, database and report packages can share them without import cycles.
package model
