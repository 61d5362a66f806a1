package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/candemir/bulkmail/internal/domain"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_email_templates",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.EmailTemplate{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.EmailTemplate{})
			},
		},
		{
			ID: "000002_create_profiles",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.Profile{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.Profile{})
			},
		},
		{
			// Default contacts table. Profiles can point at additional
			// tables with the same shape, created out of band.
			ID: "000003_create_contacts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.Table("contacts").AutoMigrate(&domain.Contact{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_contacts_email_id ON contacts (email_id)`,
					`CREATE INDEX IF NOT EXISTS idx_contacts_email_status ON contacts (email_status)`,
					`CREATE INDEX IF NOT EXISTS idx_contacts_last_sent_at ON contacts (last_sent_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("contacts")
			},
		},
	})

	return m.Migrate()
}
