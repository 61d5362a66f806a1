package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/candemir/bulkmail/internal/domain"
)

type ProfileRepository interface {
	Create(ctx context.Context, p *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
	Update(ctx context.Context, p *domain.Profile) error
	Delete(ctx context.Context, id string) error
}

type GormProfileRepo struct {
	db *gorm.DB
}

func NewGormProfileRepo(db *gorm.DB) *GormProfileRepo {
	return &GormProfileRepo{db: db}
}

func (r *GormProfileRepo) Create(ctx context.Context, p *domain.Profile) error {
	return r.db.WithContext(ctx).Table("profiles").Create(p).Error
}

func (r *GormProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).Table("profiles").First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *GormProfileRepo) List(ctx context.Context) ([]domain.Profile, error) {
	var profiles []domain.Profile
	err := r.db.WithContext(ctx).
		Table("profiles").
		Order("created_at DESC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *GormProfileRepo) Update(ctx context.Context, p *domain.Profile) error {
	result := r.db.WithContext(ctx).
		Table("profiles").
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"name":                p.Name,
			"description":         p.Description,
			"contacts_table_name": p.ContactsTableName,
			"providers":           p.Providers,
			"default_provider_id": p.DefaultProviderID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormProfileRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Table("profiles").
		Where("id = ?", id).
		Delete(&domain.Profile{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
