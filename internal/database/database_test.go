package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenAppliesForeignKeyPragma(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	defer db.Close()

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("querying foreign_keys pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys pragma to be 1, got %d", fk)
	}
}

func TestOpenReadOnlyDoesNotRequireWritePragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenReadOnly(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenReadOnly() returned error: %v", err)
	}
	defer db.Close()

	var one int
	if err := db.QueryRow("SELECT 1").Scan(&one); err != nil {
		t.Fatalf("querying: %v", err)
	}
	if one != 1 {
		t.Errorf("expected 1, got %d", one)
	}
}
