package archivepkg

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeFixtureZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %q: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %q: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
}

func TestExtractWritesEveryEntryUnderANamedSubdirectory(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "backup.jwlibrary")
	writeFixtureZip(t, src, map[string]string{
		"manifest.json": `{"name":"test"}`,
		"userData.db":   "fake sqlite contents",
	})

	destDir := filepath.Join(tmp, "working")
	targetDir, err := Extract(src, destDir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if filepath.Base(targetDir) != "backup" {
		t.Errorf("expected extraction directory named 'backup', got %q", targetDir)
	}

	data, err := os.ReadFile(filepath.Join(targetDir, "manifest.json"))
	if err != nil {
		t.Fatalf("read extracted manifest.json: %v", err)
	}
	if string(data) != `{"name":"test"}` {
		t.Errorf("unexpected manifest.json contents: %s", data)
	}
}

func TestExtractRejectsZipSlip(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "evil.jwlibrary")
	writeFixtureZip(t, src, map[string]string{
		"../../escape.txt": "malicious",
	})

	_, err := Extract(src, filepath.Join(tmp, "working"))
	if err == nil {
		t.Fatal("expected Extract to reject a path escaping the target directory")
	}
}

func TestPackThenFindDBFileRoundTrips(t *testing.T) {
	tmp := t.TempDir()
	srcDir := filepath.Join(tmp, "merged")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "manifest.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "userData.db"), []byte("sqlite"), 0o644); err != nil {
		t.Fatalf("write db: %v", err)
	}

	destPath := filepath.Join(tmp, "out.jwlibrary")
	if err := Pack(srcDir, destPath); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	extracted, err := Extract(destPath, filepath.Join(tmp, "reextracted"))
	if err != nil {
		t.Fatalf("Extract packed archive: %v", err)
	}
	dbPath, err := FindDBFile(extracted)
	if err != nil {
		t.Fatalf("FindDBFile: %v", err)
	}
	if filepath.Base(dbPath) != "userData.db" {
		t.Errorf("expected userData.db, got %s", dbPath)
	}
}

func TestFindDBFileErrorsWhenNoneOrMultiplePresent(t *testing.T) {
	tmp := t.TempDir()
	if _, err := FindDBFile(tmp); err == nil {
		t.Fatal("expected error when no .db file is present")
	}

	if err := os.WriteFile(filepath.Join(tmp, "a.db"), []byte(""), 0o644); err != nil {
		t.Fatalf("write a.db: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "b.db"), []byte(""), 0o644); err != nil {
		t.Fatalf("write b.db: %v", err)
	}
	if _, err := FindDBFile(tmp); err == nil {
		t.Fatal("expected error when multiple .db files are present")
	}
}
