package provider

import (
	"context"

	"github.com/candemir/bulkmail/internal/domain"
)

// Sender is the outbound email delivery port. One implementation exists
// per provider type tag; adapters share no mutable state.
type Sender interface {
	Send(ctx context.Context, msg domain.EmailMessage) (*SendResponse, error)
}

// SendResponse stores provider call metadata for the dispatcher and for
// delivery-state persistence.
type SendResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
