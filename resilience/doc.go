// Package resilience provides the failure-handling patterns used around the
// external edges of a track: retry with exponential backoff for Kafka reads
// and Redis startup, and a circuit breaker that stops a failing Redis from
// stalling metadata delivery.
package resilience
