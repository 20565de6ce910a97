// Package exporter writes the crawl output directory:
//
//	<out>/pages/<slug>__<hash>.md   one document per exported page
//	<out>/manifest.jsonl            one JSON record per exported page
//	<out>/seen_urls.txt             sorted visited URLs for resuming
//
// Page files are written atomically (temporary file + rename). Manifest
// records are appended and synced to disk one at a time, so after a crash
// the manifest only lists pages that were fully written.
package exporter
