// Package metrics exposes crawl progress as Prometheus metrics.
//
// Metrics are registered on a private registry so tests and multiple engines
// in one process never collide with the global default registry. A nil
// *Metrics is valid and records nothing.
package metrics
