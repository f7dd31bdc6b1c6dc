package namespace

import "errors"

// Sentinel errors for lookup failures.
var (
	// ErrNotFound indicates that no namespace is stored under the requested cell ID.
	ErrNotFound = errors.New("namespace not found")

	// ErrPredecessorNotReady indicates that a cell names a predecessor whose
	// namespace has not been materialized yet.
	ErrPredecessorNotReady = errors.New("predecessor not ready")
)
