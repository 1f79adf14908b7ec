package history

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateUp applies pending migrations. It opens its own connection; the
// migrator takes ownership and closes it.
func migrateUp(path string) error {
	db, err := newConnection(DefaultConnectionConfig(path))
	if err != nil {
		return err
	}

	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("history: migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("history: migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "main", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("history: create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("history: apply migrations: %w", err)
	}
	return nil
}
