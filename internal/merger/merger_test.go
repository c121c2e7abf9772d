package merger

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jwlmerge/jwlmerge/internal/config"
	"github.com/jwlmerge/jwlmerge/internal/logger"
)

type fixtureNote struct {
	NoteId  int64
	Guid    string
	Title   string
	Content string
}

// buildFixtureArchive creates a minimal .jwlibrary archive (one Note
// table, a manifest.json) at dir/name.jwlibrary and returns its path.
func buildFixtureArchive(t *testing.T, dir, name string, notes []fixtureNote) string {
	t.Helper()
	scratch := filepath.Join(dir, name+"-scratch")
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		t.Fatalf("mkdir scratch: %v", err)
	}

	dbPath := filepath.Join(scratch, "userData.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE Note (
		NoteId INTEGER PRIMARY KEY,
		Guid TEXT,
		Title TEXT,
		Content TEXT
	)`); err != nil {
		t.Fatalf("create Note table: %v", err)
	}
	for _, n := range notes {
		if _, err := db.Exec(`INSERT INTO Note (NoteId, Guid, Title, Content) VALUES (?, ?, ?, ?)`,
			n.NoteId, n.Guid, n.Title, n.Content); err != nil {
			t.Fatalf("insert note: %v", err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close fixture db: %v", err)
	}

	manifest := map[string]interface{}{
		"name":         name + ".jwlibrary",
		"creationDate": "2020-01-01T00:00:00-0500",
		"userDataBackup": map[string]interface{}{
			"lastModifiedDate": "2020-01-01T00:00:00-0500",
			"hash":             "placeholder",
			"databaseName":     "userData.db",
			"schemaVersion":    14,
			"deviceName":       "fixture",
		},
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(scratch, "manifest.json"), data, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	archivePath := filepath.Join(dir, name+".jwlibrary")
	if err := zipDir(scratch, archivePath); err != nil {
		t.Fatalf("zip fixture archive: %v", err)
	}
	return archivePath
}

func zipDir(srcDir, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		w, err := zw.Create(entry.Name())
		if err != nil {
			return err
		}
		data, err := os.ReadFile(filepath.Join(srcDir, entry.Name()))
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func TestMergeProducesOutputArchiveWithMergedRowCounts(t *testing.T) {
	tmp := t.TempDir()
	archive1 := buildFixtureArchive(t, tmp, "source1", []fixtureNote{
		{NoteId: 1, Guid: "g1", Title: "first", Content: "a"},
	})
	archive2 := buildFixtureArchive(t, tmp, "source2", []fixtureNote{
		{NoteId: 1, Guid: "g2", Title: "second", Content: "b"},
	})

	cfg := config.DefaultConfig()
	cfg.Merge.WorkingDir = filepath.Join(tmp, "working")
	cfg.Merge.MergedDir = filepath.Join(tmp, "merged")

	result, err := Merge(context.Background(), cfg, []string{archive1, archive2}, logger.NewDefault())
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if result.OutputPath == "" {
		t.Fatal("expected a non-empty output path")
	}
	if _, err := os.Stat(result.OutputPath); err != nil {
		t.Fatalf("expected output archive to exist at %s: %v", result.OutputPath, err)
	}
	if result.TableStats["Note"] != 2 {
		t.Errorf("expected 2 merged Note rows (distinct GUIDs), got %d", result.TableStats["Note"])
	}
	if result.Verification == nil || !result.Verification.Passed() {
		t.Errorf("expected verification to pass, got %v", result.Verification)
	}
}

func TestMergeRejectsSchemaMismatch(t *testing.T) {
	tmp := t.TempDir()
	archive1 := buildFixtureArchive(t, tmp, "source1", []fixtureNote{{NoteId: 1, Guid: "g1"}})

	scratch := filepath.Join(tmp, "mismatched-scratch")
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(scratch, "userData.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE Note (Id INTEGER PRIMARY KEY, Title TEXT)`); err != nil {
		t.Fatalf("create mismatched Note table: %v", err)
	}
	db.Close()
	if err := os.WriteFile(filepath.Join(scratch, "manifest.json"), []byte(`{"userDataBackup":{"databaseName":"userData.db"}}`), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	archive2 := filepath.Join(tmp, "mismatched.jwlibrary")
	if err := zipDir(scratch, archive2); err != nil {
		t.Fatalf("zip: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Merge.WorkingDir = filepath.Join(tmp, "working")
	cfg.Merge.MergedDir = filepath.Join(tmp, "merged")

	_, err = Merge(context.Background(), cfg, []string{archive1, archive2}, logger.NewDefault())
	if err == nil {
		t.Fatal("expected schema mismatch error")
	}
}
