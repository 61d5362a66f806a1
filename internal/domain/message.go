package domain

import (
	"fmt"
	"strings"
)

// EmailMessage is one rendered message for one recipient. Built fresh per
// send attempt, never persisted.
type EmailMessage struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Text     string `json:"text,omitempty"`
	From     string `json:"from,omitempty"`
	FromName string `json:"fromName,omitempty"`
}

func (m *EmailMessage) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: recipient address is required", ErrValidation)
	}
	if strings.TrimSpace(m.Subject) == "" && strings.TrimSpace(m.HTML) == "" {
		return fmt.Errorf("%w: message subject or body is required", ErrValidation)
	}
	return nil
}

// SendResult is the uniform outcome of one send attempt. Exactly one of
// MessageID and Error is meaningful, gated by Success.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}
