package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingInput  = errors.New("required input file missing")
	ErrNotAuthorized = errors.New("not authorized")
)
