package ingestion

import "errors"

var (
	// ErrCacheRequired is returned when a pairing cache is not provided.
	ErrCacheRequired = errors.New("pairing cache required")

	// ErrSourceRequired is returned when a pairing source is not provided.
	ErrSourceRequired = errors.New("pairing source required")

	// ErrFetchFailed is returned when the source could not be reached or
	// returned data that could not be decoded.
	ErrFetchFailed = errors.New("fetch failed")
)
