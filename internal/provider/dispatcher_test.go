package provider

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/candemir/bulkmail/internal/domain"
)

type fakeSender struct {
	sendFn func(ctx context.Context, msg domain.EmailMessage) (*SendResponse, error)
}

func (f *fakeSender) Send(ctx context.Context, msg domain.EmailMessage) (*SendResponse, error) {
	return f.sendFn(ctx, msg)
}

type fakeSenderFactory struct {
	senderForFn func(p *domain.EmailProvider) (Sender, error)
}

func (f *fakeSenderFactory) SenderFor(p *domain.EmailProvider) (Sender, error) {
	return f.senderForFn(p)
}

func testMessage() domain.EmailMessage {
	return domain.EmailMessage{
		To:      "b@test.com",
		Subject: "Hi",
		HTML:    "<p>Hi</p>",
	}
}

func TestDispatchUnsupportedProviderType(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, zap.NewNop())

	result := d.Dispatch(context.Background(), &domain.EmailProvider{Type: "carrier_pigeon"}, testMessage())

	if result.Success {
		t.Fatal("unsupported provider type must produce a failure result")
	}
	if result.Error == "" {
		t.Fatal("failure result should carry a reason")
	}
}

func TestDispatchNilProvider(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil, zap.NewNop())

	result := d.Dispatch(context.Background(), nil, testMessage())

	if result.Success {
		t.Fatal("nil provider must produce a failure result")
	}
}

func TestDispatchSuccessCarriesMessageID(t *testing.T) {
	t.Parallel()

	factory := &fakeSenderFactory{
		senderForFn: func(p *domain.EmailProvider) (Sender, error) {
			return &fakeSender{
				sendFn: func(ctx context.Context, msg domain.EmailMessage) (*SendResponse, error) {
					return &SendResponse{StatusCode: 200, MessageID: "id-42"}, nil
				},
			}, nil
		},
	}

	d := NewDispatcher(factory, zap.NewNop())
	result := d.Dispatch(context.Background(), &domain.EmailProvider{Type: domain.ProviderSMTP}, testMessage())

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.MessageID != "id-42" {
		t.Fatalf("MessageID = %q, want id-42", result.MessageID)
	}
}

func TestDispatchNormalizesSenderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sendErr   error
		wantError string
	}{
		{
			name:      "provider error with message",
			sendErr:   &ProviderError{StatusCode: 502, Message: "upstream rejected"},
			wantError: "provider error: status=502: upstream rejected",
		},
		{
			name:      "plain error",
			sendErr:   errors.New("connection reset"),
			wantError: "connection reset",
		},
		{
			name:      "error with empty message",
			sendErr:   errors.New(""),
			wantError: "Unknown error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			factory := &fakeSenderFactory{
				senderForFn: func(p *domain.EmailProvider) (Sender, error) {
					return &fakeSender{
						sendFn: func(ctx context.Context, msg domain.EmailMessage) (*SendResponse, error) {
							return nil, tc.sendErr
						},
					}, nil
				},
			}

			d := NewDispatcher(factory, zap.NewNop())
			result := d.Dispatch(context.Background(), &domain.EmailProvider{Type: domain.ProviderSMTP}, testMessage())

			if result.Success {
				t.Fatal("expected failure result")
			}
			if result.Error != tc.wantError {
				t.Fatalf("Error = %q, want %q", result.Error, tc.wantError)
			}
		})
	}
}

func TestFactoryRejectsMissingConfig(t *testing.T) {
	t.Parallel()

	factory := NewFactory()

	tests := []struct {
		name     string
		provider domain.EmailProvider
	}{
		{name: "smtp without config", provider: domain.EmailProvider{Type: domain.ProviderSMTP}},
		{name: "ses without config", provider: domain.EmailProvider{Type: domain.ProviderAWSSES}},
		{name: "gmail without config", provider: domain.EmailProvider{Type: domain.ProviderGmailAPI}},
		{name: "zepto without config", provider: domain.EmailProvider{Type: domain.ProviderZeptoMail}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := factory.SenderFor(&tc.provider); err == nil {
				t.Fatal("expected error for provider without typed config")
			}
		})
	}
}

func TestFactoryUnsupportedTypeError(t *testing.T) {
	t.Parallel()

	factory := NewFactory()

	_, err := factory.SenderFor(&domain.EmailProvider{Type: "telegraph"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("error = %v, want ErrUnsupportedProvider", err)
	}
}
