package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/candemir/bulkmail/internal/domain"
)

type TemplateRepository interface {
	Create(ctx context.Context, t *domain.EmailTemplate) error
	GetByID(ctx context.Context, id string) (*domain.EmailTemplate, error)
	List(ctx context.Context) ([]domain.EmailTemplate, error)
	Update(ctx context.Context, t *domain.EmailTemplate) error
	Delete(ctx context.Context, id string) error
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) Create(ctx context.Context, t *domain.EmailTemplate) error {
	return r.db.WithContext(ctx).Table("email_templates").Create(t).Error
}

func (r *GormTemplateRepo) GetByID(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	var template domain.EmailTemplate
	err := r.db.WithContext(ctx).Table("email_templates").First(&template, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *GormTemplateRepo) List(ctx context.Context) ([]domain.EmailTemplate, error) {
	var templates []domain.EmailTemplate
	err := r.db.WithContext(ctx).
		Table("email_templates").
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *GormTemplateRepo) Update(ctx context.Context, t *domain.EmailTemplate) error {
	result := r.db.WithContext(ctx).
		Table("email_templates").
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"name":         t.Name,
			"subject":      t.Subject,
			"html_content": t.HTMLContent,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormTemplateRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Table("email_templates").
		Where("id = ?", id).
		Delete(&domain.EmailTemplate{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
