package provider

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/candemir/bulkmail/internal/domain"
)

// Factory builds one adapter per dispatch call from the provider's typed
// configuration. Clients are scoped to the call, never cached globally,
// so concurrent operations with different credentials cannot collide.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// SenderFor selects the adapter by the provider's type tag. An
// unrecognized tag yields ErrUnsupportedProvider.
func (f *Factory) SenderFor(p *domain.EmailProvider) (Sender, error) {
	if p == nil {
		return nil, fmt.Errorf("provider is required")
	}

	switch p.Type {
	case domain.ProviderSMTP:
		if p.SMTP == nil {
			return nil, fmt.Errorf("smtp config is missing")
		}
		return NewSMTPSender(*p.SMTP)
	case domain.ProviderAWSSES:
		if p.SES == nil {
			return nil, fmt.Errorf("ses config is missing")
		}
		return NewSESSender(*p.SES)
	case domain.ProviderGmailAPI:
		if p.Gmail == nil {
			return nil, fmt.Errorf("gmail config is missing")
		}
		return NewGmailSender(*p.Gmail)
	case domain.ProviderZeptoMail:
		if p.Zepto == nil {
			return nil, fmt.Errorf("zepto config is missing")
		}
		return NewZeptoSender(*p.Zepto)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, p.Type)
	}
}

// SenderFactory resolves an adapter for a provider configuration.
type SenderFactory interface {
	SenderFor(p *domain.EmailProvider) (Sender, error)
}

// Dispatcher routes one message to the adapter matching the provider's
// type tag and normalizes every adapter fault into a SendResult. At most
// one delivery attempt per invocation; no retries.
type Dispatcher struct {
	factory SenderFactory
	logger  *zap.Logger
}

func NewDispatcher(factory SenderFactory, logger *zap.Logger) *Dispatcher {
	if factory == nil {
		factory = NewFactory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{factory: factory, logger: logger}
}

// Dispatch performs one send attempt. It never returns an error and never
// panics on configuration faults: everything becomes a SendResult.
func (d *Dispatcher) Dispatch(ctx context.Context, p *domain.EmailProvider, msg domain.EmailMessage) domain.SendResult {
	sender, err := d.factory.SenderFor(p)
	if err != nil {
		d.logger.Error("dispatch rejected",
			zap.String("providerType", providerTypeLabel(p)),
			zap.Error(err),
		)
		return failureResult(err)
	}

	resp, err := sender.Send(ctx, msg)
	if err != nil {
		d.logger.Warn("send failed",
			zap.String("providerType", providerTypeLabel(p)),
			zap.String("to", msg.To),
			zap.Error(err),
		)
		return failureResult(err)
	}

	result := domain.SendResult{Success: true}
	if resp != nil {
		result.MessageID = resp.MessageID
	}
	return result
}

func failureResult(err error) domain.SendResult {
	message := "Unknown error"
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		message = err.Error()
	}
	return domain.SendResult{Success: false, Error: message}
}

func providerTypeLabel(p *domain.EmailProvider) string {
	if p == nil {
		return "<nil>"
	}
	return p.Type.String()
}
