package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations aplica todas as migrações pendentes
func RunMigrations(dbURL string, log logger.Logger) error {
	if dbURL == "" {
		return ErrNoDatabaseURL
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("erro ao carregar migrações: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("erro ao criar migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("erro ao aplicar migrações: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("erro ao ler versão das migrações: %w", err)
	}
	log.Info("Migrações aplicadas", "version", version, "dirty", dirty)
	return nil
}
