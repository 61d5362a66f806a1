package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProviderType tags the delivery mechanism of an EmailProvider.
type ProviderType string

const (
	ProviderSMTP      ProviderType = "smtp"
	ProviderAWSSES    ProviderType = "aws_ses"
	ProviderGmailAPI  ProviderType = "gmail_api"
	ProviderZeptoMail ProviderType = "zepto_mail"
)

func (t ProviderType) String() string { return string(t) }

func (t ProviderType) IsValid() bool {
	switch t {
	case ProviderSMTP, ProviderAWSSES, ProviderGmailAPI, ProviderZeptoMail:
		return true
	}
	return false
}

func ParseProviderTypeFromString(s string) (ProviderType, error) {
	pt := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	if !pt.IsValid() {
		return "", fmt.Errorf("%w: invalid provider type %q", ErrValidation, s)
	}
	return pt, nil
}

// SMTPConfig carries credentials for a direct SMTP session.
// Port is kept as a string to match stored profile payloads.
type SMTPConfig struct {
	Host   string `json:"host"`
	Port   string `json:"port"`
	Secure bool   `json:"secure"`
	User   string `json:"user"`
	Pass   string `json:"pass"`
	From   string `json:"from"`
}

// SESConfig carries AWS SES credentials and region.
type SESConfig struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	Region          string `json:"region"`
	From            string `json:"from"`
}

// GmailConfig carries the service-account identity used to impersonate
// the From mailbox. PrivateKey is stored with escaped newlines.
type GmailConfig struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	From        string `json:"from"`
}

// ZeptoConfig carries the ZeptoMail API endpoint and bearer token.
type ZeptoConfig struct {
	URL      string `json:"url"`
	APIKey   string `json:"apiKey"`
	From     string `json:"from"`
	FromName string `json:"fromName"`
}

// EmailProvider is a tagged union over the four supported delivery
// mechanisms. Exactly one config field matching Type is populated; the
// shape is determined solely by the type tag.
type EmailProvider struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      ProviderType `json:"type"`
	IsDefault bool         `json:"isDefault"`
	SMTP      *SMTPConfig  `json:"-"`
	SES       *SESConfig   `json:"-"`
	Gmail     *GmailConfig `json:"-"`
	Zepto     *ZeptoConfig `json:"-"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// providerJSON is the wire/storage form: the per-type payload lives
// under a single "config" key, discriminated by "type".
type providerJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      ProviderType    `json:"type"`
	IsDefault bool            `json:"isDefault"`
	Config    json.RawMessage `json:"config"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (p EmailProvider) MarshalJSON() ([]byte, error) {
	var cfg any
	switch p.Type {
	case ProviderSMTP:
		cfg = p.SMTP
	case ProviderAWSSES:
		cfg = p.SES
	case ProviderGmailAPI:
		cfg = p.Gmail
	case ProviderZeptoMail:
		cfg = p.Zepto
	default:
		return nil, fmt.Errorf("%w: invalid provider type %q", ErrValidation, p.Type)
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	return json.Marshal(providerJSON{
		ID:        p.ID,
		Name:      p.Name,
		Type:      p.Type,
		IsDefault: p.IsDefault,
		Config:    raw,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
}

func (p *EmailProvider) UnmarshalJSON(data []byte) error {
	var wire providerJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	out := EmailProvider{
		ID:        wire.ID,
		Name:      wire.Name,
		Type:      wire.Type,
		IsDefault: wire.IsDefault,
		CreatedAt: wire.CreatedAt,
		UpdatedAt: wire.UpdatedAt,
	}

	if len(wire.Config) == 0 {
		wire.Config = json.RawMessage("{}")
	}

	switch wire.Type {
	case ProviderSMTP:
		out.SMTP = &SMTPConfig{}
		if err := json.Unmarshal(wire.Config, out.SMTP); err != nil {
			return err
		}
	case ProviderAWSSES:
		out.SES = &SESConfig{}
		if err := json.Unmarshal(wire.Config, out.SES); err != nil {
			return err
		}
	case ProviderGmailAPI:
		out.Gmail = &GmailConfig{}
		if err := json.Unmarshal(wire.Config, out.Gmail); err != nil {
			return err
		}
	case ProviderZeptoMail:
		out.Zepto = &ZeptoConfig{}
		if err := json.Unmarshal(wire.Config, out.Zepto); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: invalid provider type %q", ErrValidation, wire.Type)
	}

	*p = out
	return nil
}

// FromAddress returns the configured sending address for the provider.
func (p *EmailProvider) FromAddress() string {
	switch p.Type {
	case ProviderSMTP:
		if p.SMTP != nil {
			return p.SMTP.From
		}
	case ProviderAWSSES:
		if p.SES != nil {
			return p.SES.From
		}
	case ProviderGmailAPI:
		if p.Gmail != nil {
			return p.Gmail.From
		}
	case ProviderZeptoMail:
		if p.Zepto != nil {
			return p.Zepto.From
		}
	}
	return ""
}

func (p *EmailProvider) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: provider is required", ErrValidation)
	}
	if !p.Type.IsValid() {
		return fmt.Errorf("%w: invalid provider type %q", ErrValidation, p.Type)
	}

	switch p.Type {
	case ProviderSMTP:
		if p.SMTP == nil {
			return fmt.Errorf("%w: smtp config is required", ErrValidation)
		}
		if strings.TrimSpace(p.SMTP.Host) == "" {
			return fmt.Errorf("%w: smtp host is required", ErrValidation)
		}
		if strings.TrimSpace(p.SMTP.Port) == "" {
			return fmt.Errorf("%w: smtp port is required", ErrValidation)
		}
	case ProviderAWSSES:
		if p.SES == nil {
			return fmt.Errorf("%w: ses config is required", ErrValidation)
		}
		if strings.TrimSpace(p.SES.AccessKeyID) == "" || strings.TrimSpace(p.SES.SecretAccessKey) == "" {
			return fmt.Errorf("%w: ses credentials are required", ErrValidation)
		}
		if strings.TrimSpace(p.SES.Region) == "" {
			return fmt.Errorf("%w: ses region is required", ErrValidation)
		}
	case ProviderGmailAPI:
		if p.Gmail == nil {
			return fmt.Errorf("%w: gmail config is required", ErrValidation)
		}
		if strings.TrimSpace(p.Gmail.ClientEmail) == "" {
			return fmt.Errorf("%w: gmail client_email is required", ErrValidation)
		}
		if strings.TrimSpace(p.Gmail.PrivateKey) == "" {
			return fmt.Errorf("%w: gmail private_key is required", ErrValidation)
		}
	case ProviderZeptoMail:
		if p.Zepto == nil {
			return fmt.Errorf("%w: zepto config is required", ErrValidation)
		}
		if strings.TrimSpace(p.Zepto.URL) == "" {
			return fmt.Errorf("%w: zepto url is required", ErrValidation)
		}
		if strings.TrimSpace(p.Zepto.APIKey) == "" {
			return fmt.Errorf("%w: zepto api key is required", ErrValidation)
		}
	}

	return nil
}
