package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/learner-records-api/pkg/config"
)

// Open connects to the configured driver and, when enabled, applies the
// embedded schema migrations.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err = NewPostgres(cfg)
	case config.DriverSQLite:
		db, err = NewSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := Migrate(db, cfg.Driver); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}
