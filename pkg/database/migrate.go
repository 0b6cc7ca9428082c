package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const migrationTable = "schema_migrations"

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// Migrate applies the embedded migrations for driver that have not been
// recorded in schema_migrations yet. Each file runs in its own transaction.
func Migrate(db *sqlx.DB, driver string) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}
	root := path.Join("migrations", driver)
	return applyMigrations(db, migrationFiles, root)
}

func applyMigrations(db *sqlx.DB, migrationFS fs.FS, root string) error {
	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`, migrationTable)
	if _, err := db.Exec(createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		applied, err := isApplied(db, file)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if applied {
			continue
		}

		content, err := fs.ReadFile(migrationFS, path.Join(root, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		upSQL := extractUp(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(upSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		record := db.Rebind("INSERT INTO " + migrationTable + " (name, applied_at) VALUES (?, ?)")
		if _, err := tx.Exec(record, file, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// extractUp returns the SQL in the "-- +migrate Up" section, or the whole file
// when no markers are present.
func extractUp(content string) string {
	const upMarker, downMarker = "-- +migrate Up", "-- +migrate Down"
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		return content
	}
	rest := content[upIdx+len(upMarker):]
	if downIdx := strings.Index(rest, downMarker); downIdx != -1 {
		return rest[:downIdx]
	}
	return rest
}

func isApplied(db *sqlx.DB, name string) (bool, error) {
	var count int
	if err := db.Get(&count, db.Rebind("SELECT COUNT(1) FROM "+migrationTable+" WHERE name = ?"), name); err != nil {
		return false, err
	}
	return count > 0, nil
}
