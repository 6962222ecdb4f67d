package db

import (
	"database/sql"
	"fmt"

	"github.com/marcus/roster/internal/models"
)

const userColumns = "id, email, first_name, last_name, avatar_url, updated_at, version"

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.AvatarURL, &u.UpdatedAt, &u.Version)
	return u, err
}

// GetByID returns the user with the given id, or nil if no such row exists.
func (db *DB) GetByID(id int) (*models.User, error) {
	row := db.conn.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

// All returns every user ordered by id ascending. This ordering is what
// offline pagination slices into fixed-size windows.
func (db *DB) All() ([]models.User, error) {
	rows, err := db.conn.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Count returns the number of user rows.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

const upsertUserSQL = `
	INSERT INTO users (id, email, first_name, last_name, avatar_url, updated_at, version)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		email      = excluded.email,
		first_name = excluded.first_name,
		last_name  = excluded.last_name,
		avatar_url = excluded.avatar_url,
		updated_at = excluded.updated_at,
		version    = excluded.version`

// UpsertOne inserts or replaces a single row, then notifies watchers.
func (db *DB) UpsertOne(u models.User) error {
	_, err := db.conn.Exec(upsertUserSQL,
		u.ID, u.Email, u.FirstName, u.LastName, u.AvatarURL, u.UpdatedAt, u.Version)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	db.notify()
	return nil
}

// UpsertMany writes a batch of rows in a single transaction (replace on
// conflict). Used by sync reconciliation to apply the merged entity set.
func (db *DB) UpsertMany(users []models.User) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}

	stmt, err := tx.Prepare(upsertUserSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, u := range users {
		if _, err := stmt.Exec(u.ID, u.Email, u.FirstName, u.LastName, u.AvatarURL, u.UpdatedAt, u.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert user %d: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	db.notify()
	return nil
}

// Delete removes the row with the given id. Deleting a missing row is not
// an error.
func (db *DB) Delete(id int) error {
	if _, err := db.conn.Exec(`DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	db.notify()
	return nil
}
