package domain

import "errors"

var (
	// ErrValidation marks invalid caller input; handlers map it to 400.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks missing rows; handlers map it to 404.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks state conflicts; handlers map it to 409.
	ErrConflict = errors.New("conflict")

	// ErrNoProvider is returned when a profile resolves no usable
	// default email provider. A bulk send must not start without one.
	ErrNoProvider = errors.New("no email provider configured")
)
