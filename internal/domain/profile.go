package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProviderList is the JSONB column holding a profile's configured
// email providers.
type ProviderList []EmailProvider

func (l ProviderList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *ProviderList) Scan(src any) error {
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
		return fmt.Errorf("unsupported provider list column type %T", src)
	}
}

// Profile groups a contacts table with its email providers. The dispatch
// core reads providers through DefaultProvider and never mutates them.
type Profile struct {
	ID                string       `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string       `gorm:"type:varchar(255);not null" json:"name"`
	Description       *string      `gorm:"type:text" json:"description,omitempty"`
	ContactsTableName string       `gorm:"column:contacts_table_name;type:varchar(255);not null" json:"contactsTableName"`
	Providers         ProviderList `gorm:"column:providers;type:jsonb" json:"emailProviders"`
	DefaultProviderID *string      `gorm:"column:default_provider_id;type:varchar(64)" json:"defaultProviderId,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: profile is required", ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: profile name is required", ErrValidation)
	}
	if strings.TrimSpace(p.ContactsTableName) == "" {
		return fmt.Errorf("%w: contacts table name is required", ErrValidation)
	}
	for i := range p.Providers {
		if err := p.Providers[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultProvider resolves the profile's default email provider. The id
// reference wins; otherwise the first provider flagged as default, then
// the first provider at all. Nil when none is configured.
func (p *Profile) DefaultProvider() *EmailProvider {
	if p == nil || len(p.Providers) == 0 {
		return nil
	}

	if p.DefaultProviderID != nil && *p.DefaultProviderID != "" {
		for i := range p.Providers {
			if p.Providers[i].ID == *p.DefaultProviderID {
				return &p.Providers[i]
			}
		}
	}

	for i := range p.Providers {
		if p.Providers[i].IsDefault {
			return &p.Providers[i]
		}
	}

	return &p.Providers[0]
}
