package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/marcus/roster/internal/models"
)

// AppendChange appends an entry to the change log and returns its assigned
// LogID. Entries are consumed by sync in LogID order.
func (db *DB) AppendChange(ch models.Change) (int64, error) {
	if !models.ValidChangeKind(ch.Kind) {
		return 0, fmt.Errorf("append change: unknown kind %q", ch.Kind)
	}

	var name, job sql.NullString
	if ch.Name != nil {
		name = sql.NullString{String: *ch.Name, Valid: true}
	}
	if ch.Job != nil {
		job = sql.NullString{String: *ch.Job, Valid: true}
	}

	res, err := db.conn.Exec(`
		INSERT INTO change_log (entity_id, kind, payload_name, payload_job, session_id)
		VALUES (?, ?, ?, ?, ?)`,
		ch.EntityID, string(ch.Kind), name, job, ch.SessionID)
	if err != nil {
		return 0, fmt.Errorf("append change: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("change log id: %w", err)
	}
	return id, nil
}

// AllChanges returns the full change log ordered by log_id ascending.
func (db *DB) AllChanges() ([]models.Change, error) {
	rows, err := db.conn.Query(`
		SELECT log_id, entity_id, kind, payload_name, payload_job, session_id
		FROM change_log ORDER BY log_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query change log: %w", err)
	}
	defer rows.Close()

	var changes []models.Change
	for rows.Next() {
		var (
			ch        models.Change
			kind      string
			name, job sql.NullString
		)
		if err := rows.Scan(&ch.LogID, &ch.EntityID, &kind, &name, &job, &ch.SessionID); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		ch.Kind = models.ChangeKind(kind)
		if name.Valid {
			ch.Name = &name.String
		}
		if job.Valid {
			ch.Job = &job.String
		}
		changes = append(changes, ch)
	}
	return changes, rows.Err()
}

// CountChanges returns the number of queued change-log entries.
func (db *DB) CountChanges() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM change_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count changes: %w", err)
	}
	return n, nil
}

// DeleteChanges removes the given log entries in a single batch. Called by
// sync only for entries whose remote replay succeeded.
func (db *DB) DeleteChanges(logIDs []int64) error {
	if len(logIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(logIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(logIDs))
	for i, id := range logIDs {
		args[i] = id
	}

	if _, err := db.conn.Exec(`DELETE FROM change_log WHERE log_id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete changes: %w", err)
	}
	return nil
}

// DeleteChangesFor removes every queued entry for one entity. Used when a
// placeholder entity is deleted before its create ever reached the server:
// the whole queued history cancels out.
func (db *DB) DeleteChangesFor(entityID int) error {
	if _, err := db.conn.Exec(`DELETE FROM change_log WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("delete changes for %d: %w", entityID, err)
	}
	return nil
}

// RewritePendingCreate refreshes the payload of a queued create entry for a
// placeholder entity. An offline update of a not-yet-replicated create must
// fold into the create rather than queue an update the server would reject
// (the placeholder id does not exist remotely). Reports whether a create
// entry was found.
func (db *DB) RewritePendingCreate(entityID int, name, job string) (bool, error) {
	res, err := db.conn.Exec(`
		UPDATE change_log SET payload_name = ?, payload_job = ?
		WHERE entity_id = ? AND kind = ?`,
		name, job, entityID, string(models.ChangeCreate))
	if err != nil {
		return false, fmt.Errorf("rewrite pending create %d: %w", entityID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rewrite pending create %d: %w", entityID, err)
	}
	return n > 0, nil
}
