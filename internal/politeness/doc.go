// Package politeness decides which URLs may be fetched and when.
//
// The Scheduler combines scope gating (same origin, path prefix, exclude
// patterns, robots.txt) with request pacing. Pacing is global: every worker
// shares one token bucket (golang.org/x/time/rate) spaced by the effective
// delay, and no request starts earlier than delay after the last completed
// fetch.
//
// All timing goes through the Clock interface so tests can substitute
// FakeClock and verify spacing without sleeping.
package politeness
