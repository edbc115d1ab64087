package utils

import "errors"

// Domain errors shared by services and handlers. Services wrap them with the
// offending identifier, handlers match them with errors.Is.
var (
	ErrNotFound            = errors.New("NOT_FOUND")
	ErrDuplicateResource   = errors.New("DUPLICATE_RESOURCE")
	ErrValidation          = errors.New("VALIDATION_ERROR")
	ErrConcurrencyConflict = errors.New("CONCURRENCY_CONFLICT")
	ErrInvalidCredentials  = errors.New("INVALID_CREDENTIALS")
	ErrInvalidToken        = errors.New("INVALID_TOKEN")
)
