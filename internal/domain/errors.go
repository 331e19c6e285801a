package domain

import "errors"

// ErrNotFound is returned when a record does not exist or is not owned by
// the requesting user. The transport layer maps it to a 404.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput is returned when a request fails domain validation. The
// transport layer maps it to a 400.
var ErrInvalidInput = errors.New("invalid input")
