// Package services holds the application logic behind the CLI and the HTTP
// API: reading acquired ratings and failures, and starting and tracking
// pipeline runs.
//
// Service-level errors are returned for predictable cases so handlers can
// map them to HTTP results consistently.
package services

import "errors"

var (
	// ErrRatingNotFound indicates that no rating is stored for the external id.
	ErrRatingNotFound = errors.New("rating not found")

	// ErrRunNotFound indicates that the requested run does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunInProgress is returned when a run is requested while another one
	// is still active in this process.
	ErrRunInProgress = errors.New("a run is already in progress")

	// ErrInvalidPoolSize is returned for a pool size below one.
	ErrInvalidPoolSize = errors.New("pool size must be >= 1")

	// ErrInvalidLimit is returned for a negative game limit.
	ErrInvalidLimit = errors.New("limit must be >= 0")

	// ErrShuttingDown is returned when a run is requested after Shutdown.
	ErrShuttingDown = errors.New("run service is shutting down")
)
