// Package fetcher performs HTTP GET requests for the crawler and validates
// the responses.
//
// Page-level failures are not errors in the usual sense: a non-2xx status,
// a non-HTML content type, or a network failure all come back as a
// *SkipError carrying the model.Outcome, so the crawler can drop the URL and
// continue. Bodies are decompressed (gzip, deflate, br) and converted to
// UTF-8 before they are returned.
package fetcher
