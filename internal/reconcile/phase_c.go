package reconcile

import "github.com/jwlmerge/jwlmerge/internal/relation"

// PhaseC drops rows that are duplicates of each other once one
// specific column is ignored: TagMap (ignoring Position), UserMark
// (ignoring ColorIndex), and Location (ignoring Title). Unlike
// PhaseA/B this never remaps FK
// references onto a survivor; it only removes the redundant row, since
// by this point the ignored column is understood to be either
// positional or cosmetic metadata that duplicate rows may legitimately
// disagree on.
func PhaseC(db *relation.Database) {
	for table, ignoreColumn := range ignoreColumnDedup {
		t, ok := db.Tables[table]
		if !ok {
			continue
		}
		dedupeIgnoringColumn(t, ignoreColumn)
	}
}

func dedupeIgnoringColumn(table *relation.Table, ignoreColumn string) {
	subset := subsetExcluding(table.Schema.Columns, ignoreColumn)

	seen := make(map[string]bool, len(table.Rows))
	kept := table.Rows[:0]
	for _, row := range table.Rows {
		key := relation.RowKey(subset, row)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	table.Rows = kept
	table.ReindexByPK()
}
