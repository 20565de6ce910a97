// Package database stores the crawl history of wikiexport in SQLite.
//
// Each invocation of the crawl command is a run. The CrawlDB keeps:
//   - one row per run (start URL, state, export count, start and finish time)
//   - one row per dequeued URL of a run with its outcome and, for exported
//     pages, the title and markdown path
//
// The database lives next to the export as <out>/crawl.db. It complements the
// seen-URL file: the seen file decides what a resumed run skips, the history
// explains why each URL ended the way it did. The pure-Go driver
// modernc.org/sqlite keeps the binary CGO-free.
package database
