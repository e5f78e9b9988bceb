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
	auditdomain "github.com/smallbiznis/taxrail/internal/audit/domain"
	categorydomain "github.com/smallbiznis/taxrail/internal/category/domain"
	exemptiondomain "github.com/smallbiznis/taxrail/internal/exemption/domain"
	jurisdictiondomain "github.com/smallbiznis/taxrail/internal/jurisdiction/domain"
	taxprofiledomain "github.com/smallbiznis/taxrail/internal/taxprofile/domain"
	taxratedomain "github.com/smallbiznis/taxrail/internal/taxrate/domain"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "sql"

// RunMigrations applies the embedded SQL migrations so the engine is usable
// out of the box on postgres.
func RunMigrations(db *sql.DB) error {
	if db == nil {
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

	driver, err := postgres.WithInstance(db, &postgres.Config{})
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

// AutoMigrate creates the schema through gorm for the sqlite and mysql
// dialects, where the embedded postgres migrations do not apply. Tests use
// it against in-memory sqlite.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&jurisdictiondomain.Jurisdiction{},
		&categorydomain.Category{},
		&taxprofiledomain.TaxProfile{},
		&taxratedomain.TaxRate{},
		&taxratedomain.TaxRateTier{},
		&taxratedomain.RateSetVersion{},
		&exemptiondomain.Exemption{},
		&auditdomain.AuditLog{},
	)
}
