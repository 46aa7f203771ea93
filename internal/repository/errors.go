package repository

import "errors"

// Sentinel errors shared by all repositories. Handlers map these onto HTTP
// statuses; everything else is treated as an internal failure.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
)
