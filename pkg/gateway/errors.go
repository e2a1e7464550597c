package gateway

import "errors"

var (
	ErrValidation         = errors.New("invalid request")
	ErrCapacityExceeded   = errors.New("cache limit reached")
	ErrDuplicateKey       = errors.New("key already exists")
	ErrNotFound           = errors.New("key not found")
	ErrBackendUnavailable = errors.New("backend unavailable")
)
