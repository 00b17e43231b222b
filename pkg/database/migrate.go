package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Migrate creates or alters the tables of models. Existing rows are kept.
func Migrate(db *gorm.DB, models ...interface{}) error {
	missing := MissingTables(db, models...)
	log.Info().
		Int("models", len(models)).
		Strs("new_tables", missing).
		Msg("Running database migrations...")

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Int("models", len(models)).Msg("Database migrations completed successfully")
	return nil
}

// MissingTables returns the table names of models that do not exist yet
func MissingTables(db *gorm.DB, models ...interface{}) []string {
	var missing []string
	for _, model := range models {
		if HasTable(db, model) {
			continue
		}
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			missing = append(missing, fmt.Sprintf("%T", model))
			continue
		}
		missing = append(missing, stmt.Schema.Table)
	}
	return missing
}

// DropAllTables drops the tables of models. Tests only.
func DropAllTables(db *gorm.DB, models ...interface{}) error {
	log.Warn().Int("models", len(models)).Msg("Dropping database tables...")

	for _, model := range models {
		if err := db.Migrator().DropTable(model); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}

	return nil
}

// HasTable checks if a table exists
func HasTable(db *gorm.DB, model interface{}) bool {
	return db.Migrator().HasTable(model)
}
