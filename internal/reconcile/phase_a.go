package reconcile

import (
	"github.com/jwlmerge/jwlmerge/internal/relation"
)

// PhaseA collapses rows that are exact duplicates of each other once
// their primary key column is ignored (or, for single-column tables,
// duplicates of the column's own value). For each group of colliding
// rows, the first row encountered survives; every other row's
// references are remapped onto it and the duplicate rows themselves are
// dropped.
func PhaseA(db *relation.Database, order []string) {
	for _, name := range order {
		table, ok := db.Tables[name]
		if !ok {
			continue
		}
		collapseExactDuplicates(db, table)
	}
}

func collapseExactDuplicates(db *relation.Database, table *relation.Table) {
	schema := table.Schema

	var groupKey string
	var pkColumn string
	if schema.SingleColumn() {
		groupKey = schema.Columns[0]
		pkColumn = schema.Columns[0]
	} else {
		if schema.Keyless() {
			// No declared PK and more than one column: nothing in this
			// domain's schema takes this shape, and without a PK there is
			// no column to remap collisions onto, so leave it untouched.
			return
		}
		pkColumn = schema.PKs[0]
	}

	groups := make(map[string][]int64) // natural-key -> ordered list of PK values sharing it
	order := make([]string, 0)
	for _, row := range table.Rows {
		pk, ok := relation.AsInt64(row[pkColumn])
		if !ok {
			continue
		}
		var key string
		if schema.SingleColumn() {
			key = relation.RowKey([]string{groupKey}, row)
		} else {
			key = relation.RowKey(subsetExcluding(schema.Columns, pkColumn), row)
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], pk)
	}

	replacements := make(map[int64]int64)
	for _, key := range order {
		pks := groups[key]
		if len(pks) < 2 {
			continue
		}
		survivor := pks[0]
		for _, dup := range pks[1:] {
			replacements[dup] = survivor
		}
	}

	if schema.SingleColumn() {
		// Single-column tables have no dependents to remap FKs for
		// through this PK, but still need the duplicate literal values
		// removed.
		dedupeSingleColumn(table)
		return
	}

	db.RemapPrimaryKey(table.Schema.Table, replacements)
}

func subsetExcluding(columns []string, exclude string) []string {
	out := make([]string, 0, len(columns)-1)
	for _, c := range columns {
		if c != exclude {
			out = append(out, c)
		}
	}
	return out
}

func dedupeSingleColumn(table *relation.Table) {
	col := table.Schema.Columns[0]
	seen := make(map[string]bool, len(table.Rows))
	kept := table.Rows[:0]
	for _, row := range table.Rows {
		key := relation.RowKey([]string{col}, row)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	table.Rows = kept
}
