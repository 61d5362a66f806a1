package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/candemir/bulkmail/internal/domain"
	"github.com/google/uuid"
)

const defaultSMTPTimeout = 30 * time.Second

// SMTPSender delivers mail over a direct SMTP session. secure=true opens
// an implicit TLS connection; otherwise STARTTLS is negotiated when the
// server offers it.
type SMTPSender struct {
	config    domain.SMTPConfig
	tlsConfig *tls.Config
	dialer    *net.Dialer
	helloName string
}

func NewSMTPSender(config domain.SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(config.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	port, err := strconv.Atoi(strings.TrimSpace(config.Port))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid smtp port %q", config.Port)
	}

	return &SMTPSender{
		config: config,
		tlsConfig: &tls.Config{
			ServerName: config.Host,
			MinVersion: tls.VersionTLS12,
		},
		dialer:    &net.Dialer{Timeout: defaultSMTPTimeout},
		helloName: "localhost",
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg domain.EmailMessage) (*SendResponse, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	from := msg.From
	if from == "" {
		from = s.config.From
	}
	if strings.TrimSpace(from) == "" {
		return nil, &ProviderError{Message: "smtp sender address is not configured"}
	}

	addr := net.JoinHostPort(s.config.Host, strings.TrimSpace(s.config.Port))

	conn, err := s.dial(ctx, addr)
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("smtp connect to %s failed", addr), Cause: err}
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return nil, &ProviderError{Message: "smtp handshake failed", Cause: err}
	}
	defer client.Close()

	if err := client.Hello(s.helloName); err != nil {
		return nil, &ProviderError{Message: "smtp hello failed", Cause: err}
	}

	if !s.config.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(s.tlsConfig); err != nil {
				return nil, &ProviderError{Message: "smtp starttls failed", Cause: err}
			}
		}
	}

	if s.config.User != "" {
		auth := smtp.PlainAuth("", s.config.User, s.config.Pass, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return nil, &ProviderError{Message: "smtp auth rejected", Cause: err}
		}
	}

	if err := client.Mail(from); err != nil {
		return nil, &ProviderError{Message: "smtp mail from rejected", Cause: err}
	}
	if err := client.Rcpt(msg.To); err != nil {
		return nil, &ProviderError{Message: "smtp recipient rejected", Cause: err}
	}

	messageID := generateMessageID(from)
	body := buildMIMEMessage(from, msg.FromName, msg.To, msg.Subject, msg.HTML, msg.Text, messageID)

	w, err := client.Data()
	if err != nil {
		return nil, &ProviderError{Message: "smtp data command failed", Cause: err}
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return nil, &ProviderError{Message: "smtp message write failed", Cause: err}
	}
	if err := w.Close(); err != nil {
		return nil, &ProviderError{Message: "smtp message not accepted", Cause: err}
	}

	if err := client.Quit(); err != nil {
		// Message already accepted; a failed QUIT does not undo delivery.
		return &SendResponse{MessageID: messageID}, nil
	}

	return &SendResponse{MessageID: messageID}, nil
}

// Verify opens, authenticates, and closes a session without sending.
// Backs the SMTP connection-test endpoint.
func (s *SMTPSender) Verify(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strings.TrimSpace(s.config.Port))

	conn, err := s.dial(ctx, addr)
	if err != nil {
		return &ProviderError{Message: fmt.Sprintf("smtp connect to %s failed", addr), Cause: err}
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return &ProviderError{Message: "smtp handshake failed", Cause: err}
	}
	defer client.Close()

	if err := client.Hello(s.helloName); err != nil {
		return &ProviderError{Message: "smtp hello failed", Cause: err}
	}

	if !s.config.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(s.tlsConfig); err != nil {
				return &ProviderError{Message: "smtp starttls failed", Cause: err}
			}
		}
	}

	if s.config.User != "" {
		auth := smtp.PlainAuth("", s.config.User, s.config.Pass, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return &ProviderError{Message: "smtp auth rejected", Cause: err}
		}
	}

	return client.Quit()
}

func (s *SMTPSender) dial(ctx context.Context, addr string) (net.Conn, error) {
	if s.config.Secure {
		tlsDialer := &tls.Dialer{NetDialer: s.dialer, Config: s.tlsConfig}
		return tlsDialer.DialContext(ctx, "tcp", addr)
	}
	return s.dialer.DialContext(ctx, "tcp", addr)
}

func generateMessageID(from string) string {
	host := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		host = from[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), host)
}
