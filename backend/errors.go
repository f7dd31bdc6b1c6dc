package backend

import "errors"

// Common errors for backend operations.
var (
	ErrBackendNotFound = errors.New("backend not found")
	ErrBackendDisabled = errors.New("backend disabled")
	ErrBackendExists   = errors.New("backend already registered")
	ErrToolNotFound    = errors.New("tool not found in backend")
	ErrInvalidToolID   = errors.New("invalid tool ID format")
)
