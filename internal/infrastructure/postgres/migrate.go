package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationSource scripts embebidos (NNNNNN_nombre.up.sql) como fuente de golang-migrate.
func MigrationSource() (source.Driver, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("fuente de migraciones: %w", err)
	}
	return src, nil
}

// Migrate aplica las migraciones pendientes usando una conexión database/sql
// propia, abierta con la configuración del pool y cerrada al terminar.
func Migrate(pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("migraciones: pool requerido")
	}
	db := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer db.Close()
	return RunMigrations(db)
}

// RunMigrations aplica las migraciones pendientes sobre db. La versión
// aplicada queda en schema_migrations; sin cambios pendientes no es error.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migraciones: conexión requerida")
	}
	src, err := MigrationSource()
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migraciones: driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migraciones: crear migrador: %w", err)
	}
	// m.Close cerraría también db; lo cierra el llamador.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migraciones: aplicar: %w", err)
	}
	return nil
}
