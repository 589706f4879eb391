package service

import "errors"

// Sentinel errors mapped to HTTP status codes by the handlers.
var (
	// ErrNotAuthenticated means the request carried no usable identity.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden means the identity is valid but may not perform the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the referenced report, chat or notification does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the request payload or parameters are malformed
	// or violate a business rule.
	ErrValidation = errors.New("validation failed")
)
