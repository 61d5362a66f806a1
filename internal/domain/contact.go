package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DeliveryStatus represents the last known delivery state of a contact.
type DeliveryStatus string

const (
	DeliveryUnsent  DeliveryStatus = ""
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliveryPending DeliveryStatus = "pending"
)

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryUnsent, DeliverySent, DeliveryFailed, DeliveryPending:
		return true
	}
	return false
}

// TemplateUsage counts how many times one named template was sent to a
// contact.
type TemplateUsage struct {
	Name       string     `json:"name"`
	Used       int        `json:"used"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// TemplateUsageList is stored as a JSONB column on the contact row.
type TemplateUsageList []TemplateUsage

func (l TemplateUsageList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *TemplateUsageList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported template usage column type %T", src)
	}
}

// Bump increments the usage entry for templateName or appends a new one.
// Repeat sends never duplicate an entry.
func (l TemplateUsageList) Bump(templateName string, now time.Time) TemplateUsageList {
	ts := now.UTC()
	for i := range l {
		if l[i].Name == templateName {
			updated := make(TemplateUsageList, len(l))
			copy(updated, l)
			updated[i].Used++
			updated[i].LastUsedAt = &ts
			return updated
		}
	}

	return append(append(TemplateUsageList{}, l...), TemplateUsage{
		Name:       templateName,
		Used:       1,
		LastUsedAt: &ts,
	})
}

// ContactData holds the free-form per-contact JSONB payload addressed in
// templates as {{data.*}}.
type ContactData map[string]any

func (d ContactData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *ContactData) Scan(src any) error {
	if src == nil {
		*d = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported contact data column type %T", src)
	}
}

// Contact is one row of a caller-supplied contacts table.
type Contact struct {
	ID              string            `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string            `gorm:"type:varchar(255)" json:"name"`
	EmailID         string            `gorm:"column:email_id;type:varchar(255);not null" json:"email_id"`
	EmailStatus     DeliveryStatus    `gorm:"type:varchar(20)" json:"email_status"`
	EmailOpened     bool              `gorm:"not null;default:false" json:"email_opened"`
	SubscribeStatus *string           `gorm:"type:varchar(20)" json:"subscribe_status"`
	FailureReason   *string           `gorm:"type:text" json:"failure_reason"`
	NoOfTimeSent    int               `gorm:"column:no_of_time_sent;not null;default:0" json:"no_of_time_sent"`
	LastSentAt      *time.Time        `json:"last_sent_at"`
	Data            ContactData       `gorm:"type:jsonb" json:"data"`
	TemplateUsed    TemplateUsageList `gorm:"column:template_used;type:jsonb" json:"template_used"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TemplateFields exposes the flat substitution context for the renderer.
// The data payload and usage bookkeeping are reserved and excluded.
func (c *Contact) TemplateFields() map[string]any {
	fields := map[string]any{
		"id":               c.ID,
		"name":             c.Name,
		"email_id":         c.EmailID,
		"email_status":     c.EmailStatus.String(),
		"email_opened":     c.EmailOpened,
		"no_of_time_sent":  c.NoOfTimeSent,
		"subscribe_status": c.SubscribeStatus,
		"failure_reason":   c.FailureReason,
		"last_sent_at":     c.LastSentAt,
		"created_at":       c.CreatedAt,
		"updated_at":       c.UpdatedAt,
	}
	return fields
}
