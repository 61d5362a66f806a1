package domain

import (
	"fmt"
	"strings"
	"time"
)

// EmailTemplate is a stored subject/body pair with {{placeholder}} tokens.
type EmailTemplate struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Subject     string    `gorm:"type:text;not null" json:"subject"`
	HTMLContent string    `gorm:"column:html_content;type:text;not null" json:"html_content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (EmailTemplate) TableName() string {
	return "email_templates"
}

func (t *EmailTemplate) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: template is required", ErrValidation)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: template name is required", ErrValidation)
	}
	if strings.TrimSpace(t.Subject) == "" {
		return fmt.Errorf("%w: template subject is required", ErrValidation)
	}
	if strings.TrimSpace(t.HTMLContent) == "" {
		return fmt.Errorf("%w: template html content is required", ErrValidation)
	}
	return nil
}
