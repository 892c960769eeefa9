package catalog

import "errors"

var (
	ErrNotFound           = errors.New("property not found")
	ErrInvalidPrice       = errors.New("price must be a non-negative number")
	ErrUnknownField       = errors.New("unknown property field")
	ErrEmailTaken         = errors.New("email already registered")
	ErrReservedEmail      = errors.New("email is reserved")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
