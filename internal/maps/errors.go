package maps

import "errors"

// Every adapter in this package reports provider outcomes through these kinds.
var (
	ErrLocationNotFound    = errors.New("location not found")
	ErrRouteNotFound       = errors.New("no route found")
	ErrProviderUnavailable = errors.New("maps provider unavailable")
)
