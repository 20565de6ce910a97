// Package frontier provides the crawl frontier: a FIFO queue of pending URLs
// and the set of URLs that have already been dequeued.
//
// A URL is marked visited at the moment it is popped, before any network
// I/O, so two callers can never dequeue the same URL. The visited set can be
// seeded from a previous run and snapshotted for the next one.
package frontier
