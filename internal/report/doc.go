// Package report renders crawl results for people and tools.
//
// Three formats are provided:
//   - SimpleWriter: the plain text summary printed when a crawl ends
//   - JSONWriter: structured output for scripts
//   - MarkdownWriter: tables suitable for pasting into an issue or wiki page
//
// Each writer renders a run summary, the list of past runs from the crawl
// history and the per-URL outcomes of one past run.
package report
