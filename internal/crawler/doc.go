// Package crawler drives a wiki export.
//
// The Engine pops URLs from the frontier, gates them through the politeness
// scheduler, fetches and extracts them, exports the result and pushes newly
// discovered in-scope links back to the frontier.
//
// # Concurrency
//
// A single dispatcher goroutine owns the frontier, the exporter and the run
// counters. Fetch workers run in an errgroup limited to Config.Workers; they
// wait for a politeness slot, fetch and extract, and hand the result back to
// the dispatcher. Every URL is marked visited when it is popped, before any
// network I/O, so no URL is fetched twice. Requests are paced globally by the
// scheduler, so adding workers never exceeds the site's crawl delay.
//
// # States
//
// A run goes Idle -> Running -> Completed or Aborted. Page-level problems
// (non-HTML, HTTP errors, network failures, empty pages) skip the URL and the
// crawl continues. Only output failures and cancellation abort a run. Once
// the output directory exists, the visited set is written to seen_urls.txt
// before Run returns.
//
// # Usage
//
//	engine, err := crawler.New(cfg, crawler.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	summary, err := engine.Run(ctx)
package crawler
