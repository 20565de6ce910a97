// Package main provides the entry point for the wikiexport CLI.
//
// wikiexport crawls a MediaWiki-style site from one start page, stays on
// the article pages of that origin, and exports every page as a Markdown
// document with YAML front matter plus a JSONL manifest.
//
// Usage:
//
//	wikiexport crawl https://wiki.example.org/wiki/Main_Page
//	wikiexport history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
