package migration_20250612_0000

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Document is frozen at the schema this migration shipped with. Later
// revisions must copy it into their own migration package before changing it.
type Document struct {
	Collection string    `gorm:"primaryKey;size:64"`
	ID         string    `gorm:"primaryKey;size:128;column:id"`
	Data       []byte    `gorm:"type:jsonb"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

func Migrate() *gormigrate.Migration {
	migrationId := "20250612-0000"
	return &gormigrate.Migration{
		ID: migrationId,
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&Document{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&Document{})
		},
	}
}
