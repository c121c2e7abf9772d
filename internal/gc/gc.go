// Package gc implements referential garbage collection: four
// domain-specific orphan rules. The first three (Note, IndependentMedia,
// BlockRange) each cascade the delete along foreign key edges so that
// removing a row never leaves dangling references behind it; orphan
// Locations are by definition unreferenced and are removed without a
// cascade.
package gc

import "github.com/jwlmerge/jwlmerge/internal/relation"

// Collect runs the four orphan rules in order: untagged empty Notes,
// orphan IndependentMedia, orphan BlockRange, then orphan
// Location (which depends on the first three having already run, since
// a Location can become an orphan only after its last referencing row
// elsewhere is gone).
func Collect(db *relation.Database) {
	removeEmptyUntaggedNotes(db)
	removeOrphanIndependentMedia(db)
	removeOrphanBlockRange(db)
	removeOrphanLocations(db)
}

func removeEmptyUntaggedNotes(db *relation.Database) {
	notes, ok := db.Tables["Note"]
	if !ok {
		return
	}
	tagMap, hasTagMap := db.Tables["TagMap"]

	taggedNoteIDs := make(map[int64]bool)
	if hasTagMap {
		for _, row := range tagMap.Rows {
			if v, ok := relation.AsInt64(row["NoteId"]); ok {
				taggedNoteIDs[v] = true
			}
		}
	}

	kept := notes.Rows[:0]
	for _, row := range notes.Rows {
		empty := blank(row["Title"]) && blank(row["Content"])
		pk, _ := relation.AsInt64(row["NoteId"])
		if empty && !taggedNoteIDs[pk] {
			db.RemoveReferencesTo("Note", "NoteId", pk)
			continue
		}
		kept = append(kept, row)
	}
	notes.Rows = kept
	notes.ReindexByPK()
}

func removeOrphanIndependentMedia(db *relation.Database) {
	media, ok := db.Tables["IndependentMedia"]
	if !ok {
		return
	}
	mapTable, ok := db.Tables["PlaylistItemIndependentMediaMap"]
	if !ok {
		return
	}

	referenced := make(map[int64]bool)
	for _, row := range mapTable.Rows {
		if v, ok := relation.AsInt64(row["IndependentMediaId"]); ok {
			referenced[v] = true
		}
	}

	kept := media.Rows[:0]
	for _, row := range media.Rows {
		pk, _ := relation.AsInt64(row["IndependentMediaId"])
		if !referenced[pk] {
			db.RemoveReferencesTo("IndependentMedia", "IndependentMediaId", pk)
			continue
		}
		kept = append(kept, row)
	}
	media.Rows = kept
	media.ReindexByPK()
}

func removeOrphanBlockRange(db *relation.Database) {
	blockRanges, ok := db.Tables["BlockRange"]
	if !ok {
		return
	}
	userMarks, ok := db.Tables["UserMark"]
	if !ok {
		return
	}

	valid := make(map[int64]bool)
	for _, row := range userMarks.Rows {
		if v, ok := relation.AsInt64(row["UserMarkId"]); ok {
			valid[v] = true
		}
	}

	kept := blockRanges.Rows[:0]
	for _, row := range blockRanges.Rows {
		userMarkID, _ := relation.AsInt64(row["UserMarkId"])
		if !valid[userMarkID] {
			if pk, ok := relation.AsInt64(row["BlockRangeId"]); ok {
				db.RemoveReferencesTo("BlockRange", "BlockRangeId", pk)
			}
			continue
		}
		kept = append(kept, row)
	}
	blockRanges.Rows = kept
	blockRanges.ReindexByPK()
}

// removeOrphanLocations drops Location rows that no table anywhere in
// the database still references, discovering the referencing tables
// generically from the schema's FK edges rather than a hardcoded list
// -- every table whose FK points at Location.LocationId must vote "not
// referenced" for a location to be considered orphaned.
func removeOrphanLocations(db *relation.Database) {
	locations, ok := db.Tables["Location"]
	if !ok {
		return
	}
	edges := db.FKEdgesInto("Location", "LocationId")
	if len(edges) == 0 {
		return
	}

	referenced := make(map[int64]bool)
	for _, edge := range edges {
		t, ok := db.Tables[edge.Table]
		if !ok {
			continue
		}
		for _, row := range t.Rows {
			if v, ok := relation.AsInt64(row[edge.Column]); ok {
				referenced[v] = true
			}
		}
	}

	kept := locations.Rows[:0]
	for _, row := range locations.Rows {
		pk, _ := relation.AsInt64(row["LocationId"])
		if !referenced[pk] {
			continue
		}
		kept = append(kept, row)
	}
	locations.Rows = kept
	locations.ReindexByPK()
}

func blank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	default:
		return false
	}
}
