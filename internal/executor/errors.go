package executor

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned before any network attempt when the store
// endpoint or token is missing from the configuration.
var ErrNotConfigured = errors.New("store is not configured: missing REST URL or token")

// TransportError reports a non-success HTTP status from the store endpoint.
type TransportError struct {
	StatusCode int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("store request failed with status %d", e.StatusCode)
}

// StoreError reports a logical error returned by the store itself, e.g. a
// malformed command, after a successful HTTP exchange.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s", e.Message)
}
