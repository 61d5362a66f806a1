package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/candemir/bulkmail/internal/domain"
)

const sesCharset = "UTF-8"

// sesAPI is the slice of the SESv2 client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers mail via the AWS SES v2 API, one recipient per call.
type SESSender struct {
	client sesAPI
	from   string
}

func NewSESSender(config domain.SESConfig) (*SESSender, error) {
	if strings.TrimSpace(config.Region) == "" {
		return nil, fmt.Errorf("ses region is required")
	}
	if strings.TrimSpace(config.AccessKeyID) == "" || strings.TrimSpace(config.SecretAccessKey) == "" {
		return nil, fmt.Errorf("ses credentials are required")
	}

	cfg := aws.Config{
		Region:      config.Region,
		Credentials: credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
	}

	return &SESSender{
		client: sesv2.NewFromConfig(cfg),
		from:   config.From,
	}, nil
}

func (s *SESSender) Send(ctx context.Context, msg domain.EmailMessage) (*SendResponse, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	from := msg.From
	if from == "" {
		from = s.from
	}

	body := &sestypes.Body{
		Html: &sestypes.Content{
			Data:    aws.String(msg.HTML),
			Charset: aws.String(sesCharset),
		},
	}
	if msg.Text != "" {
		body.Text = &sestypes.Content{
			Data:    aws.String(msg.Text),
			Charset: aws.String(sesCharset),
		}
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(formatFromHeader(from, msg.FromName)),
		Destination: &sestypes.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String(sesCharset),
				},
				Body: body,
			},
		},
	})
	if err != nil {
		return nil, &ProviderError{Message: "ses send failed", Cause: err}
	}

	return &SendResponse{MessageID: aws.ToString(out.MessageId)}, nil
}
