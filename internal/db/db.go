// Package db is the durable local store: a SQLite users table that is the
// single read source of truth, plus an append-only change log of mutations
// made while disconnected.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marcus/roster/internal/models"
	_ "modernc.org/sqlite"
)

const dbFile = ".roster/roster.db"

// DB wraps the database connection and the snapshot watcher registry.
type DB struct {
	conn    *sql.DB
	baseDir string

	mu          sync.Mutex
	watchers    map[int64]chan []models.User
	nextWatcher int64
}

// Open opens an existing database and runs any pending migrations.
func Open(baseDir string) (*DB, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: run 'roster init' first")
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(conn); err != nil {
		conn.Close()
		return nil, err
	}

	db := newDB(conn, baseDir)
	if err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Initialize creates the database file and runs all migrations.
func Initialize(baseDir string) (*DB, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(conn); err != nil {
		conn.Close()
		return nil, err
	}

	db := newDB(conn, baseDir)
	if err := db.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// NewFromConn wraps an existing connection. The caller keeps ownership of
// the connection lifetime and pragmas; migrations are not run. Used by
// tests that open their own in-memory database.
func NewFromConn(conn *sql.DB) *DB {
	return newDB(conn, "")
}

func newDB(conn *sql.DB, baseDir string) *DB {
	return &DB{
		conn:     conn,
		baseDir:  baseDir,
		watchers: make(map[int64]chan []models.User),
	}
}

func applyPragmas(conn *sql.DB) error {
	// WAL allows concurrent reads while writes are serialized.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Slightly faster writes, still safe with WAL
	conn.Exec("PRAGMA synchronous=NORMAL")
	return nil
}

// Conn returns the underlying *sql.DB connection for use in transactions.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the database connection and all watcher channels.
func (db *DB) Close() error {
	db.mu.Lock()
	for id, ch := range db.watchers {
		close(ch)
		delete(db.watchers, id)
	}
	db.mu.Unlock()
	return db.conn.Close()
}
