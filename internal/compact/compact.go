// Package compact implements key compaction: after reconciliation and
// garbage collection leave gaps in every table's key space, renumber
// each table's primary key densely from 1..N, in row order, and
// propagate the renumbering through every foreign key edge that points
// at it.
package compact

import "github.com/jwlmerge/jwlmerge/internal/relation"

// Compact renumbers every eligible table's primary key to a dense
// 1..N sequence, skipping composite, keyless, and single-column tables.
// order is the table processing
// order from internal/graph (parents before dependents); processing in
// that order means a table's own renumbering is always fully settled
// before any table referencing it is compacted, though correctness here
// does not actually depend on the order since RemapPrimaryKey updates
// dependents immediately.
func Compact(db *relation.Database, order []string) {
	for _, name := range order {
		table, ok := db.Tables[name]
		if !ok {
			continue
		}
		compactTable(db, table)
	}
}

func compactTable(db *relation.Database, table *relation.Table) {
	schema := table.Schema
	if schema.Keyless() || schema.Composite() || schema.SingleColumn() || len(schema.PKs) == 0 {
		return
	}
	pkColumn := schema.PKs[0]

	replacements := make(map[int64]int64, len(table.Rows))
	for i, row := range table.Rows {
		if v, ok := relation.AsInt64(row[pkColumn]); ok {
			replacements[v] = int64(i + 1)
		}
	}
	if len(replacements) == 0 {
		return
	}
	db.RemapPrimaryKey(schema.Table, replacements)
}
