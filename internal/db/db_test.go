package db

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/marcus/roster/internal/models"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)

	db := NewFromConn(conn)
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testUser(id int, email string) models.User {
	return models.User{
		ID:        id,
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		UpdatedAt: 1000,
		Version:   1,
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := setupDB(t)

	u := testUser(1, "a@example.com")
	if err := db.UpsertOne(u); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetByID(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected a row, got nil")
	}
	if *got != u {
		t.Errorf("got %+v, want %+v", *got, u)
	}

	missing, err := db.GetByID(99)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing row, got %+v", *missing)
	}
}

func TestUpsertReplacesOnConflict(t *testing.T) {
	db := setupDB(t)

	if err := db.UpsertOne(testUser(1, "old@example.com")); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	u := testUser(1, "new@example.com")
	u.UpdatedAt = 2000
	u.Version = 2
	if err := db.UpsertOne(u); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := db.GetByID(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "new@example.com" || got.Version != 2 {
		t.Errorf("row not replaced: %+v", *got)
	}

	n, err := db.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count: got %d, want 1", n)
	}
}

func TestUpsertManyAndAllOrdered(t *testing.T) {
	db := setupDB(t)

	users := []models.User{
		testUser(5, "e@example.com"),
		testUser(1, "a@example.com"),
		testUser(3, "c@example.com"),
	}
	if err := db.UpsertMany(users); err != nil {
		t.Fatalf("upsert many: %v", err)
	}

	all, err := db.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len: got %d, want 3", len(all))
	}
	for i, want := range []int{1, 3, 5} {
		if all[i].ID != want {
			t.Errorf("all[%d].ID: got %d, want %d", i, all[i].ID, want)
		}
	}
}

func TestDelete(t *testing.T) {
	db := setupDB(t)

	if err := db.UpsertOne(testUser(1, "a@example.com")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := db.GetByID(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("row not deleted: %+v", *got)
	}

	if err := db.Delete(42); err != nil {
		t.Errorf("deleting a missing row should not error: %v", err)
	}
}

func TestChangeLogOrderAndDelete(t *testing.T) {
	db := setupDB(t)

	name, job := "A B", "a@example.com"
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := db.AppendChange(models.Change{
			EntityID: i + 1,
			Kind:     models.ChangeCreate,
			Name:     &name,
			Job:      &job,
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	changes, err := db.AllChanges()
	if err != nil {
		t.Fatalf("all changes: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("len: got %d, want 3", len(changes))
	}
	for i := 1; i < len(changes); i++ {
		if changes[i].LogID <= changes[i-1].LogID {
			t.Errorf("log ids not ascending: %d then %d", changes[i-1].LogID, changes[i].LogID)
		}
	}

	if err := db.DeleteChanges(ids[:2]); err != nil {
		t.Fatalf("delete changes: %v", err)
	}
	remaining, err := db.AllChanges()
	if err != nil {
		t.Fatalf("all changes: %v", err)
	}
	if len(remaining) != 1 || remaining[0].LogID != ids[2] {
		t.Errorf("remaining: %+v, want single entry with log id %d", remaining, ids[2])
	}
}

func TestChangeLogNullPayload(t *testing.T) {
	db := setupDB(t)

	if _, err := db.AppendChange(models.Change{EntityID: 7, Kind: models.ChangeDelete}); err != nil {
		t.Fatalf("append delete: %v", err)
	}

	changes, err := db.AllChanges()
	if err != nil {
		t.Fatalf("all changes: %v", err)
	}
	if changes[0].Name != nil || changes[0].Job != nil {
		t.Errorf("delete payload should be nil, got %+v", changes[0])
	}
}

func TestRewritePendingCreate(t *testing.T) {
	db := setupDB(t)

	name, job := "Old Name", "old@example.com"
	if _, err := db.AppendChange(models.Change{EntityID: -5, Kind: models.ChangeCreate, Name: &name, Job: &job}); err != nil {
		t.Fatalf("append: %v", err)
	}

	folded, err := db.RewritePendingCreate(-5, "New Name", "new@example.com")
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if !folded {
		t.Fatal("expected rewrite to find the create entry")
	}

	changes, _ := db.AllChanges()
	if len(changes) != 1 || *changes[0].Name != "New Name" || *changes[0].Job != "new@example.com" {
		t.Errorf("payload not rewritten: %+v", changes[0])
	}

	folded, err = db.RewritePendingCreate(-99, "x", "y")
	if err != nil {
		t.Fatalf("rewrite missing: %v", err)
	}
	if folded {
		t.Error("rewrite of a missing entity should report false")
	}
}

func TestDeleteChangesFor(t *testing.T) {
	db := setupDB(t)

	name, job := "A", "a@example.com"
	db.AppendChange(models.Change{EntityID: -5, Kind: models.ChangeCreate, Name: &name, Job: &job})
	db.AppendChange(models.Change{EntityID: -5, Kind: models.ChangeUpdate, Name: &name, Job: &job})
	db.AppendChange(models.Change{EntityID: 3, Kind: models.ChangeDelete})

	if err := db.DeleteChangesFor(-5); err != nil {
		t.Fatalf("delete changes for: %v", err)
	}

	changes, _ := db.AllChanges()
	if len(changes) != 1 || changes[0].EntityID != 3 {
		t.Errorf("expected only entity 3's entry to remain, got %+v", changes)
	}
}

func TestMigrationBackfillsConflictColumns(t *testing.T) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	db := NewFromConn(conn)
	t.Cleanup(func() { db.Close() })

	// Simulate a database that predates conflict-resolution support.
	legacy := `
		CREATE TABLE schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL);
		CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE change_log (
			log_id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			payload_name TEXT,
			payload_job TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		INSERT INTO schema_info (key, value) VALUES ('version', '1');
		INSERT INTO users (id, email) VALUES (1, 'old@example.com');
	`
	if _, err := conn.Exec(legacy); err != nil {
		t.Fatalf("create legacy schema: %v", err)
	}

	before := time.Now().UnixMilli()
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	got, err := db.GetByID(1)
	if err != nil {
		t.Fatalf("get migrated row: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("version default: got %d, want 1", got.Version)
	}
	if got.UpdatedAt < before {
		t.Errorf("updated_at should default to migration time, got %d", got.UpdatedAt)
	}

	v, err := db.GetSchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != schemaVersion {
		t.Errorf("schema version: got %d, want %d", v, schemaVersion)
	}
}

func TestObserveEmitsInitialAndAfterWrite(t *testing.T) {
	db := setupDB(t)

	if err := db.UpsertOne(testUser(1, "a@example.com")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := db.Observe(ctx)

	select {
	case snapshot := <-ch:
		if len(snapshot) != 1 {
			t.Fatalf("initial snapshot: got %d rows, want 1", len(snapshot))
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	if err := db.UpsertOne(testUser(2, "b@example.com")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case snapshot := <-ch:
		if len(snapshot) != 2 {
			t.Fatalf("post-write snapshot: got %d rows, want 2", len(snapshot))
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after write")
	}
}

func TestObserveClosesOnCancel(t *testing.T) {
	db := setupDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	ch := db.Observe(ctx)
	<-ch // initial snapshot

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// A snapshot may have been buffered; the next read must close.
			if _, ok := <-ch; ok {
				t.Fatal("channel still open after cancel")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestConcurrentWritesObserveLatestSnapshot(t *testing.T) {
	db := setupDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := db.Observe(ctx)
	<-ch // initial empty snapshot

	const writers = 10
	var wg sync.WaitGroup
	for i := 1; i <= writers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := db.UpsertOne(testUser(id, "u@example.com")); err != nil {
				t.Errorf("upsert %d: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	// The buffered snapshot is the most recent delivery; after all writers
	// finished it must reflect every committed row, not a stale interleaving.
	select {
	case snapshot := <-ch:
		if len(snapshot) != writers {
			t.Errorf("latest snapshot has %d rows, want %d", len(snapshot), writers)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered after concurrent writes")
	}
}
