package writer

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jwlmerge/jwlmerge/internal/logger"
	"github.com/jwlmerge/jwlmerge/internal/relation"
	"github.com/jwlmerge/jwlmerge/internal/schemascan"
)

func openFixture(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite3: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE Note (NoteId INTEGER PRIMARY KEY, Title TEXT, Content TEXT);
	CREATE TABLE TagMap (TagMapId INTEGER PRIMARY KEY, NoteId INTEGER,
		FOREIGN KEY (NoteId) REFERENCES Note(NoteId));
	CREATE INDEX idx_tagmap_note ON TagMap(NoteId);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}
	// seed with rows the write pass must clear before inserting merged data
	if _, err := db.Exec(`INSERT INTO Note (NoteId, Title, Content) VALUES (999, 'stale', 'stale')`); err != nil {
		t.Fatalf("seed stale row: %v", err)
	}
	return db
}

func TestWriteClearsStaleRowsAndInsertsMergedRows(t *testing.T) {
	ctx := context.Background()
	db := openFixture(t)
	scanned, err := schemascan.Scan(db)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	merged := relation.NewDatabase()
	notes := merged.TableOrCreate(scanned.Schemas["Note"])
	notes.Append(relation.Row{"NoteId": int64(1), "Title": "first", "Content": ""})
	notes.Append(relation.Row{"NoteId": int64(2), "Title": "second", "Content": ""})
	notes.ReindexByPK()

	tagMap := merged.TableOrCreate(scanned.Schemas["TagMap"])
	tagMap.Append(relation.Row{"TagMapId": int64(1), "NoteId": int64(1)})
	tagMap.ReindexByPK()

	order := []string{"Note", "TagMap"}
	stats, err := Write(ctx, db, merged, scanned, order, logger.NewDefault())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if stats.RowsWritten != 3 {
		t.Errorf("expected 3 rows written, got %d", stats.RowsWritten)
	}

	rows, err := db.Query(`SELECT NoteId, Title FROM Note ORDER BY NoteId`)
	if err != nil {
		t.Fatalf("query Note: %v", err)
	}
	defer rows.Close()

	var got []int64
	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, id)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected Note rows [1 2], got %v (stale row 999 should have been cleared)", got)
	}
}

func TestWriteNormalizesEmptyStringBackToNull(t *testing.T) {
	ctx := context.Background()
	db := openFixture(t)
	scanned, err := schemascan.Scan(db)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	merged := relation.NewDatabase()
	notes := merged.TableOrCreate(scanned.Schemas["Note"])
	notes.Append(relation.Row{"NoteId": int64(1), "Title": "kept", "Content": ""})
	notes.ReindexByPK()
	merged.TableOrCreate(scanned.Schemas["TagMap"]).ReindexByPK()

	if _, err := Write(ctx, db, merged, scanned, []string{"Note", "TagMap"}, logger.NewDefault()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var content sql.NullString
	if err := db.QueryRow(`SELECT Content FROM Note WHERE NoteId = 1`).Scan(&content); err != nil {
		t.Fatalf("query Content: %v", err)
	}
	if content.Valid {
		t.Errorf("expected Content to be NULL, got %q", content.String)
	}
}

func TestDenormalizeCellKeepsEmptyStringInTextAndValueColumns(t *testing.T) {
	cases := []string{"Value", "TextTag", "InputField.Value", "ParagraphNumericFieldValue"}
	for _, col := range cases {
		got := denormalizeCell(col, "")
		if got != "" {
			t.Errorf("column %q: expected empty string preserved, got %#v", col, got)
		}
	}
}

func TestDenormalizeCellNullsEmptyStringElsewhere(t *testing.T) {
	cases := []string{"Content", "Title", "LocationId"}
	for _, col := range cases {
		got := denormalizeCell(col, "")
		if got != nil {
			t.Errorf("column %q: expected nil, got %#v", col, got)
		}
	}
}

func TestDenormalizeCellCoercesNumericStrings(t *testing.T) {
	got := denormalizeCell("LocationId", "42")
	n, ok := got.(int)
	if !ok || n != 42 {
		t.Errorf("expected int 42, got %#v", got)
	}
}

func TestDenormalizeCellLeavesNonNumericStringsAlone(t *testing.T) {
	got := denormalizeCell("Title", "chapter 3")
	if got != "chapter 3" {
		t.Errorf("expected unchanged string, got %#v", got)
	}
}
