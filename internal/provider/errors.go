package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedProvider signals a provider type tag the dispatcher does
// not recognize. It is a configuration error, surfaced as a failure
// result at the boundary, never silently ignored.
var ErrUnsupportedProvider = errors.New("unsupported provider type")

// ProviderError carries the status and message of a failed provider call.
type ProviderError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	parts = append(parts, "provider error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
