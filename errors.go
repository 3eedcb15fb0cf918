package parcelsuggest

import "errors"

var (
	// ErrSourceRequired is returned when an engine is created without a source.
	ErrSourceRequired = errors.New("pairing source required")

	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("engine closed")
)
