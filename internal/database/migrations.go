package database

import (
	"errors"
	"time"

	"github.com/reparigo/reparigo/backend/internal/seo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillDefaultCTA = "2026-07-21_backfill_default_cta_text"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillDefaultCTA, apply: backfillDefaultCTAText},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Pages imported from the earliest generation runs predate the
// call-to-action field and carry an empty string there.
func backfillDefaultCTAText(db *gorm.DB) error {
	return db.Model(&seo.Page{}).
		Where("cta_text = ''").
		Update("cta_text", seo.DefaultCTAText).Error
}
