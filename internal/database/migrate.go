package database

import (
	"embed"

	"github.com/go-faster/errors"
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func MigrateDB(db *gorm.DB) error {
	sqlDb, err := db.DB()
	if err != nil {
		return err
	}
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(sqlDb, "migrations"); err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}
