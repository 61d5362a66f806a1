package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/candemir/bulkmail/internal/domain"
)

const (
	zeptoSendPath       = "/v1.1/email"
	defaultZeptoTimeout = 10 * time.Second
)

type zeptoAddress struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

type zeptoRecipient struct {
	EmailAddress zeptoAddress `json:"email_address"`
}

type zeptoSendRequest struct {
	From     zeptoAddress     `json:"from"`
	To       []zeptoRecipient `json:"to"`
	Subject  string           `json:"subject"`
	HTMLBody string           `json:"htmlbody"`
}

type zeptoSendResponse struct {
	Data []struct {
		MessageID string `json:"message_id"`
	} `json:"data"`
	Message string `json:"message"`
}

// ZeptoSender delivers mail through the ZeptoMail HTTP API with a bearer
// API key. Transport failures are returned as errors; the upstream client
// library swallowed them, which hid real delivery failures.
type ZeptoSender struct {
	client   *resty.Client
	config   domain.ZeptoConfig
	endpoint string
}

func NewZeptoSender(config domain.ZeptoConfig) (*ZeptoSender, error) {
	client := resty.New()
	client.SetTimeout(defaultZeptoTimeout)
	client.SetRetryCount(0)

	return NewZeptoSenderWithClient(config, client)
}

func NewZeptoSenderWithClient(config domain.ZeptoConfig, client *resty.Client) (*ZeptoSender, error) {
	endpoint := strings.TrimSpace(config.URL)
	if endpoint == "" {
		return nil, fmt.Errorf("zepto endpoint url is required")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid zepto endpoint: %w", err)
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("zepto api key is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	endpoint = strings.TrimSuffix(endpoint, "/")
	if !strings.HasSuffix(endpoint, zeptoSendPath) {
		endpoint += zeptoSendPath
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultZeptoTimeout)
	}
	client.SetRetryCount(0)

	return &ZeptoSender{
		client:   client,
		config:   config,
		endpoint: endpoint,
	}, nil
}

func (z *ZeptoSender) Send(ctx context.Context, msg domain.EmailMessage) (*SendResponse, error) {
	if z == nil || z.client == nil {
		return nil, fmt.Errorf("zepto sender is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	from := msg.From
	if from == "" {
		from = z.config.From
	}
	fromName := msg.FromName
	if fromName == "" {
		fromName = z.config.FromName
	}

	reqBody := zeptoSendRequest{
		From: zeptoAddress{Address: from, Name: fromName},
		To: []zeptoRecipient{
			{EmailAddress: zeptoAddress{Address: msg.To}},
		},
		Subject:  msg.Subject,
		HTMLBody: msg.HTML,
	}

	resp, err := z.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", z.config.APIKey).
		SetBody(reqBody).
		Post(z.endpoint)
	if err != nil {
		return nil, &ProviderError{Message: "zepto request failed", Cause: err}
	}

	statusCode := resp.StatusCode()
	body := strings.TrimSpace(resp.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		message := fmt.Sprintf("zepto api returned status %d", statusCode)
		var apiErr zeptoSendResponse
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Message != "" {
			message = apiErr.Message
		}
		return nil, &ProviderError{StatusCode: statusCode, Message: message}
	}

	// A 2xx without a message id still counts as accepted; callers derive
	// success from the result, not from the identifier.
	var sent zeptoSendResponse
	messageID := ""
	if json.Unmarshal(resp.Body(), &sent) == nil && len(sent.Data) > 0 {
		messageID = sent.Data[0].MessageID
	}

	return &SendResponse{
		StatusCode: statusCode,
		Body:       body,
		MessageID:  messageID,
	}, nil
}
