package database

import (
	"errors"
	"fmt"

	"soapnotes-app/internal/domain/notes"
	"soapnotes-app/internal/domain/profiles"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres and migrates the schema. The returned handle is
// owned by the caller and passed to the stores that need it.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&profiles.Profile{},
		&notes.Note{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
