package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/candemir/bulkmail/internal/domain"
)

// ContactListParams filters a contacts table listing.
type ContactListParams struct {
	Opened   *bool
	Status   *domain.DeliveryStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// DeliveryPatch is the per-contact state written after one send attempt.
type DeliveryPatch struct {
	Status        domain.DeliveryStatus
	FailureReason *string
	LastSentAt    *time.Time
	NoOfTimeSent  *int
	TemplateUsed  domain.TemplateUsageList
}

type ContactRepository interface {
	GetByID(ctx context.Context, table string, id string) (*domain.Contact, error)
	FetchByIDs(ctx context.Context, table string, ids []string) ([]domain.Contact, error)
	UpdateDelivery(ctx context.Context, table string, id string, patch DeliveryPatch) error
	MarkOpened(ctx context.Context, table string, email string) error
	List(ctx context.Context, table string, params ContactListParams) ([]domain.Contact, int64, error)
}

type GormContactRepo struct {
	db *gorm.DB
}

func NewGormContactRepo(db *gorm.DB) *GormContactRepo {
	return &GormContactRepo{db: db}
}

// quoteTable makes a caller-supplied table name safe for the dynamic
// Table() call. Only non-empty is enforced as a business rule; quoting
// keeps the identifier literal.
func quoteTable(table string) (string, error) {
	name := strings.TrimSpace(table)
	if name == "" {
		return "", fmt.Errorf("%w: contacts table name is required", domain.ErrValidation)
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`, nil
}

func (r *GormContactRepo) GetByID(ctx context.Context, table string, id string) (*domain.Contact, error) {
	quoted, err := quoteTable(table)
	if err != nil {
		return nil, err
	}

	var contact domain.Contact
	err = r.db.WithContext(ctx).Table(quoted).First(&contact, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *GormContactRepo) FetchByIDs(ctx context.Context, table string, ids []string) ([]domain.Contact, error) {
	quoted, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var contacts []domain.Contact
	err = r.db.WithContext(ctx).
		Table(quoted).
		Where("id IN ?", ids).
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *GormContactRepo) UpdateDelivery(ctx context.Context, table string, id string, patch DeliveryPatch) error {
	quoted, err := quoteTable(table)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"email_status": patch.Status,
		"updated_at":   time.Now().UTC(),
	}
	if patch.FailureReason != nil {
		updates["failure_reason"] = *patch.FailureReason
	} else {
		updates["failure_reason"] = nil
	}
	if patch.LastSentAt != nil {
		updates["last_sent_at"] = *patch.LastSentAt
	}
	if patch.NoOfTimeSent != nil {
		updates["no_of_time_sent"] = *patch.NoOfTimeSent
	}
	if patch.TemplateUsed != nil {
		updates["template_used"] = patch.TemplateUsed
	}

	result := r.db.WithContext(ctx).
		Table(quoted).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormContactRepo) MarkOpened(ctx context.Context, table string, email string) error {
	quoted, err := quoteTable(table)
	if err != nil {
		return err
	}
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	result := r.db.WithContext(ctx).
		Table(quoted).
		Where("email_id = ?", email).
		Updates(map[string]any{
			"email_opened": true,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormContactRepo) List(ctx context.Context, table string, params ContactListParams) ([]domain.Contact, int64, error) {
	quoted, err := quoteTable(table)
	if err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Table(quoted)

	if params.Opened != nil {
		query = query.Where("email_opened = ?", *params.Opened)
	}
	if params.Status != nil {
		query = query.Where("email_status = ?", *params.Status)
	}
	if params.From != nil {
		query = query.Where("last_sent_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("last_sent_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var contacts []domain.Contact
	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&contacts).Error
	if err != nil {
		return nil, 0, err
	}

	return contacts, total, nil
}
