package domain

import "errors"

// Sentinel errors for data layer operations
var (
	// ErrItemNotFound indicates the requested item does not exist at the source
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidQuery indicates a query parameter had an unusable value
	ErrInvalidQuery = errors.New("invalid query")

	// ErrSourceUnavailable indicates the item source could not be read
	ErrSourceUnavailable = errors.New("item source is unavailable")
)
