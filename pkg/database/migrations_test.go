package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

const testSchema = `
CREATE TABLE IF NOT EXISTS users (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    email      TEXT UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id          TEXT PRIMARY KEY,
    sender_id   TEXT NOT NULL REFERENCES users(id),
    receiver_id TEXT NOT NULL REFERENCES users(id),
    body        TEXT NOT NULL,
    created_at  DATETIME NOT NULL,
    read        INTEGER NOT NULL DEFAULT 0,
    read_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_messages_receiver_read ON messages(receiver_id, read);
CREATE INDEX IF NOT EXISTS idx_messages_sender_time ON messages(sender_id, created_at);
`

func setupMigrationTest(t *testing.T) (*sql.DB, string) {
	t.Helper()

	tmpDir := t.TempDir()
	migrationsDir := filepath.Join(tmpDir, "migrations")
	if err := os.Mkdir(migrationsDir, 0o755); err != nil {
		t.Fatalf("failed to create migrations dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(migrationsDir, "001_initial_schema.sql"), []byte(testSchema), 0o644); err != nil {
		t.Fatalf("failed to write migration file: %v", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db, migrationsDir
}

func TestMigrationManager_ApplyMigrations(t *testing.T) {
	db, migrationsDir := setupMigrationTest(t)

	manager := NewMigrationManager(db, migrationsDir)
	if err := manager.ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}

	validator := NewSchemaValidator(db)
	if err := validator.ValidateTablesExist(); err != nil {
		t.Errorf("tables missing after migration: %v", err)
	}
	if err := validator.ValidateTableStructure(); err != nil {
		t.Errorf("table structure mismatch: %v", err)
	}
	if err := validator.ValidateIndexes(); err != nil {
		t.Errorf("indexes missing: %v", err)
	}
}

func TestMigrationManager_Idempotent(t *testing.T) {
	db, migrationsDir := setupMigrationTest(t)

	manager := NewMigrationManager(db, migrationsDir)
	if err := manager.ApplyMigrations(); err != nil {
		t.Fatalf("first ApplyMigrations failed: %v", err)
	}
	if err := manager.ApplyMigrations(); err != nil {
		t.Fatalf("second ApplyMigrations failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 applied migration, got %d", count)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	bad := DefaultConfig()
	bad.DatabasePath = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for empty database path")
	}

	bad = DefaultConfig()
	bad.MaxConnections = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero max connections")
	}
}
