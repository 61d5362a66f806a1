package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"

	"github.com/candemir/bulkmail/internal/domain"
)

const (
	gmailSendURL     = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"
	gmailSendScope   = "https://www.googleapis.com/auth/gmail.send"
	gmailSendTimeout = 30 * time.Second
)

// GmailSender delivers mail through the Gmail API with a service-account
// JWT that impersonates the configured From mailbox. The raw message is
// hand-built as a plain+HTML multipart/alternative and base64url-encoded
// before submission.
type GmailSender struct {
	jwtConfig *jwt.Config
	from      string
	endpoint  string
}

func NewGmailSender(config domain.GmailConfig) (*GmailSender, error) {
	if strings.TrimSpace(config.ClientEmail) == "" {
		return nil, fmt.Errorf("gmail client_email is required")
	}
	if strings.TrimSpace(config.PrivateKey) == "" {
		return nil, fmt.Errorf("gmail private_key is required")
	}
	if strings.TrimSpace(config.From) == "" {
		return nil, fmt.Errorf("gmail from mailbox is required")
	}

	// Keys pasted into provider profiles carry literal \n escapes.
	key := strings.ReplaceAll(config.PrivateKey, `\n`, "\n")

	return &GmailSender{
		jwtConfig: &jwt.Config{
			Email:      config.ClientEmail,
			PrivateKey: []byte(key),
			Scopes:     []string{gmailSendScope},
			TokenURL:   google.JWTTokenURL,
			Subject:    config.From,
		},
		from:     config.From,
		endpoint: gmailSendURL,
	}, nil
}

type gmailSendRequest struct {
	Raw string `json:"raw"`
}

type gmailSendResponse struct {
	ID string `json:"id"`
}

type gmailErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GmailSender) Send(ctx context.Context, msg domain.EmailMessage) (*SendResponse, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	from := msg.From
	if from == "" {
		from = g.from
	}

	text := msg.Text
	if text == "" {
		text = msg.Subject
	}
	raw := encodeBase64URL(buildMIMEMessage(from, msg.FromName, msg.To, msg.Subject, msg.HTML, text, ""))

	// The oauth2 transport signs and exchanges the service-account JWT
	// on first use; signing failures surface as request errors here.
	client := resty.NewWithClient(g.jwtConfig.Client(ctx))
	client.SetTimeout(gmailSendTimeout)
	client.SetRetryCount(0)

	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(gmailSendRequest{Raw: raw}).
		Post(g.endpoint)
	if err != nil {
		return nil, &ProviderError{Message: "gmail send request failed", Cause: err}
	}

	statusCode := resp.StatusCode()
	body := strings.TrimSpace(resp.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		message := fmt.Sprintf("gmail api returned status %d", statusCode)
		var apiErr gmailErrorResponse
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return nil, &ProviderError{StatusCode: statusCode, Message: message}
	}

	var sent gmailSendResponse
	if err := json.Unmarshal(resp.Body(), &sent); err != nil {
		return nil, &ProviderError{StatusCode: statusCode, Message: "gmail response decode failed", Cause: err}
	}

	return &SendResponse{
		StatusCode: statusCode,
		Body:       body,
		MessageID:  sent.ID,
	}, nil
}
