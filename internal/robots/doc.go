// Package robots loads and interprets a site's robots.txt.
//
// Allow and disallow rules are delegated to github.com/temoto/robotstxt.
// Crawl-delay is a non-standard extension, so it is parsed separately by
// ParseCrawlDelay with a small line scanner.
//
// Robots directives never block a crawl: when robots.txt is missing,
// unreachable, or malformed, Load returns a permissive policy.
package robots
