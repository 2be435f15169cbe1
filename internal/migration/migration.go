package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/comanda/internal/audit/domain"
	authdomain "github.com/smallbiznis/comanda/internal/auth/domain"
	licensedomain "github.com/smallbiznis/comanda/internal/license/domain"
	orderdomain "github.com/smallbiznis/comanda/internal/order/domain"
	productdomain "github.com/smallbiznis/comanda/internal/product/domain"
	saledomain "github.com/smallbiznis/comanda/internal/sale/domain"
	settingsdomain "github.com/smallbiznis/comanda/internal/settings/domain"
	tabledomain "github.com/smallbiznis/comanda/internal/table/domain"
	zonedomain "github.com/smallbiznis/comanda/internal/zone/domain"
	"github.com/smallbiznis/comanda/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted type. Dialects without SQL migrations are
// created from these definitions.
func Models() []any {
	return []any{
		&settingsdomain.Settings{},
		&zonedomain.Zone{},
		&productdomain.Product{},
		&tabledomain.Table{},
		&orderdomain.Order{},
		&saledomain.Sale{},
		&licensedomain.License{},
		&authdomain.User{},
		&authdomain.Session{},
		&auditdomain.AuditLog{},
	}
}

// Run brings the schema up to date. Postgres uses the embedded SQL
// migrations; sqlite and mysql terminals are migrated from the models.
func Run(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if dbType != db.TypePostgres {
		return conn.AutoMigrate(Models()...)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
