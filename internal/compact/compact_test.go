package compact

import (
	"testing"

	"github.com/jwlmerge/jwlmerge/internal/relation"
)

func TestCompactRenumbersDenselyAndCascadesToDependents(t *testing.T) {
	db := relation.NewDatabase()
	notes := db.TableOrCreate(&relation.Schema{
		Table: "Note", PKs: []string{"NoteId"}, Columns: []string{"NoteId", "Title"},
	})
	notes.Append(relation.Row{"NoteId": int64(5), "Title": "a"})
	notes.Append(relation.Row{"NoteId": int64(100002), "Title": "b"})
	notes.ReindexByPK()

	tagMap := db.TableOrCreate(&relation.Schema{
		Table: "TagMap", PKs: []string{"TagMapId"}, Columns: []string{"TagMapId", "NoteId"},
		FKs: []relation.FK{{Column: "NoteId", RefTable: "Note", RefColumn: "NoteId"}},
	})
	tagMap.Append(relation.Row{"TagMapId": int64(1), "NoteId": int64(100002)})
	tagMap.ReindexByPK()

	Compact(db, []string{"Note", "TagMap"})

	var noteIDs []int64
	for _, row := range notes.Rows {
		v, _ := relation.AsInt64(row["NoteId"])
		noteIDs = append(noteIDs, v)
	}
	if len(noteIDs) != 2 || noteIDs[0] != 1 || noteIDs[1] != 2 {
		t.Fatalf("expected dense [1 2], got %v", noteIDs)
	}

	tagNoteID, _ := relation.AsInt64(tagMap.Rows[0]["NoteId"])
	if tagNoteID != 2 {
		t.Fatalf("expected TagMap.NoteId cascaded to 2, got %d", tagNoteID)
	}
}

func TestCompactSkipsCompositeAndSingleColumnTables(t *testing.T) {
	db := relation.NewDatabase()
	composite := db.TableOrCreate(&relation.Schema{
		Table: "PlaylistItemLocationMap", PKs: []string{"PlaylistItemId", "LocationId"},
		Columns: []string{"PlaylistItemId", "LocationId"},
	})
	composite.Append(relation.Row{"PlaylistItemId": int64(9), "LocationId": int64(9)})
	composite.ReindexByPK()

	single := db.TableOrCreate(&relation.Schema{Table: "LastModified", Columns: []string{"LastModified"}})
	single.Append(relation.Row{"LastModified": "2024-01-01T00:00:00Z"})

	Compact(db, []string{"PlaylistItemLocationMap", "LastModified"})

	if v, _ := relation.AsInt64(composite.Rows[0]["PlaylistItemId"]); v != 9 {
		t.Fatalf("composite table PK should be untouched, got %v", composite.Rows[0]["PlaylistItemId"])
	}
}
