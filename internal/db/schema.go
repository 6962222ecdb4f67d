package db

// schemaVersion is the current schema version. RunMigrations brings any
// older database up to this version.
const schemaVersion = 3

// Base schema (version 1). The updated_at/version columns and the change
// log session attribution arrived in later migrations; see migrations.go.
const baseSchema = `
CREATE TABLE IF NOT EXISTS schema_info (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY,
	email      TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS change_log (
	log_id       INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_id    INTEGER NOT NULL,
	kind         TEXT NOT NULL,
	payload_name TEXT,
	payload_job  TEXT,
	created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_change_log_entity ON change_log(entity_id);
`
