// Package errors provides the structured error type used across metatrack.
// Errors carry a machine-readable code, a retryable flag, and details such as
// the owning track, so hosts can decide how to fail a single track without
// string matching.
package errors
