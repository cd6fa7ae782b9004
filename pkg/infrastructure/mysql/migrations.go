package mysql

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func Migrate(db *sqlx.DB) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return errors.Wrap(err, "load migrations")
	}
	driver, err := migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	if err != nil {
		return errors.Wrap(err, "create migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		return errors.Wrap(err, "create migrator")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return errors.Wrap(err, "read migration version")
	}
	log.WithFields(log.Fields{"version": version, "dirty": dirty}).Info("database schema is up to date")
	return nil
}
