package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// columnExists probes table_info for a named column, so each migration can
// be re-run safely against a partially migrated file.
func (db *DB) columnExists(table, column string) (bool, error) {
	rows, err := db.conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// GetSchemaVersion reads the stored schema version. A missing table or row
// means a brand-new database, reported as version 0.
func (db *DB) GetSchemaVersion() (int, error) {
	var stored string
	if err := db.conn.QueryRow(`SELECT value FROM schema_info WHERE key = 'version'`).Scan(&stored); err != nil {
		return 0, nil
	}
	v, err := strconv.Atoi(stored)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", stored, err)
	}
	return v, nil
}

func (db *DB) setSchemaVersion(version int) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		strconv.Itoa(version))
	return err
}

// RunMigrations brings the database up to the current schema version.
// Each step is idempotent; a database created before conflict-resolution
// support gains updated_at/version columns with safe defaults so that
// pre-existing rows neither crash sync nor report spurious conflicts.
func (db *DB) RunMigrations() error {
	version, err := db.GetSchemaVersion()
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	if version < 1 {
		if _, err := db.conn.Exec(baseSchema); err != nil {
			return fmt.Errorf("create base schema: %w", err)
		}
		version = 1
	}

	if version < 2 {
		if err := db.migrateConflictColumns(); err != nil {
			return fmt.Errorf("add conflict columns: %w", err)
		}
		version = 2
	}

	if version < 3 {
		if err := db.migrateSessionColumn(); err != nil {
			return fmt.Errorf("add session column: %w", err)
		}
		version = 3
	}

	if err := db.setSchemaVersion(version); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// migrateConflictColumns adds updated_at (epoch millis) and version to the
// users table. Pre-existing rows default to the migration time and version 1.
func (db *DB) migrateConflictColumns() error {
	has, err := db.columnExists("users", "updated_at")
	if err != nil {
		return err
	}
	if !has {
		if _, err := db.conn.Exec(`ALTER TABLE users ADD COLUMN updated_at INTEGER NOT NULL DEFAULT 0`); err != nil {
			return err
		}
		now := time.Now().UnixMilli()
		if _, err := db.conn.Exec(`UPDATE users SET updated_at = ? WHERE updated_at = 0`, now); err != nil {
			return err
		}
	}

	has, err = db.columnExists("users", "version")
	if err != nil {
		return err
	}
	if !has {
		if _, err := db.conn.Exec(`ALTER TABLE users ADD COLUMN version INTEGER NOT NULL DEFAULT 1`); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) migrateSessionColumn() error {
	has, err := db.columnExists("change_log", "session_id")
	if err != nil {
		return err
	}
	if !has {
		if _, err := db.conn.Exec(`ALTER TABLE change_log ADD COLUMN session_id TEXT NOT NULL DEFAULT ''`); err != nil {
			return err
		}
	}
	return nil
}
