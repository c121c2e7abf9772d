// Package verify checks the properties a merged jwlmerge database must
// satisfy: referential integrity, dense keys, unique-constraint
// enforcement, and orphan-freeness. Unlike a source/destination
// row-count-or-SHA256 comparison, it runs in-process against a single
// post-merge database.
package verify

import (
	"fmt"

	"github.com/jwlmerge/jwlmerge/internal/gc"
	"github.com/jwlmerge/jwlmerge/internal/reconcile"
	"github.com/jwlmerge/jwlmerge/internal/relation"
)

// Violation describes one failed invariant.
type Violation struct {
	Property string
	Table    string
	Detail   string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Property, v.Table, v.Detail)
}

// Report is the aggregate result of running every check.
type Report struct {
	Violations []Violation
}

// Passed reports whether every check succeeded.
func (r *Report) Passed() bool {
	return len(r.Violations) == 0
}

func (r *Report) add(property, table, detail string) {
	r.Violations = append(r.Violations, Violation{Property: property, Table: table, Detail: detail})
}

// Verify runs every Testable Property check against db and returns the
// aggregate report. db is not mutated.
func Verify(db *relation.Database) *Report {
	report := &Report{}
	checkReferentialIntegrity(db, report)
	checkDenseKeys(db, report)
	checkUniqueConstraints(db, report)
	checkOrphanFree(db, report)
	return report
}

// checkReferentialIntegrity confirms every non-blank FK value in every
// table resolves to an existing row in the table it references.
func checkReferentialIntegrity(db *relation.Database, report *Report) {
	for name, table := range db.Tables {
		for _, fk := range table.Schema.FKs {
			refTable, ok := db.Tables[fk.RefTable]
			if !ok {
				continue
			}
			for _, row := range table.Rows {
				v, ok := relation.AsInt64(row[fk.Column])
				if !ok {
					continue // blank/NULL FK, nothing to check
				}
				if _, found := refTable.RowByPK(v); !found {
					report.add("referential-integrity", name,
						fmt.Sprintf("row with %s=%d has no matching %s.%s", fk.Column, v, fk.RefTable, fk.RefColumn))
				}
			}
		}
	}
}

// checkDenseKeys confirms every eligible table's primary key is a dense
// 1..N sequence, the postcondition of the Key Compactor.
func checkDenseKeys(db *relation.Database, report *Report) {
	for name, table := range db.Tables {
		schema := table.Schema
		if schema.Keyless() || schema.Composite() || schema.SingleColumn() || len(schema.PKs) == 0 {
			continue
		}
		pkColumn := schema.PKs[0]
		seen := make(map[int64]bool, len(table.Rows))
		for _, row := range table.Rows {
			v, ok := relation.AsInt64(row[pkColumn])
			if !ok {
				report.add("dense-keys", name, fmt.Sprintf("row has non-integer %s", pkColumn))
				continue
			}
			seen[v] = true
		}
		for i := int64(1); i <= int64(len(table.Rows)); i++ {
			if !seen[i] {
				report.add("dense-keys", name, fmt.Sprintf("missing expected key %d in dense range 1..%d", i, len(table.Rows)))
			}
		}
	}
}

// checkUniqueConstraints confirms no two surviving rows collide on any
// of the unique-constraint subsets the Identity Reconciler enforces.
func checkUniqueConstraints(db *relation.Database, report *Report) {
	for _, c := range reconcile.Constraints() {
		table, ok := db.Tables[c.Table]
		if !ok {
			continue
		}
		seen := make(map[string]bool, len(table.Rows))
		for _, row := range table.Rows {
			if allBlank(c.Subset, row) {
				continue // all-blank subset values never collide
			}
			if c.Table == "TagMap" {
				partial := false
				for _, col := range c.Subset {
					if s, isStr := row[col].(string); row[col] == nil || (isStr && s == "") {
						partial = true
					}
				}
				if partial {
					continue // TagMap pairs are only checked when both columns are set
				}
			}
			key := relation.RowKey(c.Subset, row)
			if seen[key] {
				report.add("unique-constraint", c.Table, fmt.Sprintf("duplicate values for %v", c.Subset))
				continue
			}
			seen[key] = true
		}
	}
}

// checkOrphanFree confirms the Referential GC's rules are already a
// no-op: running it against a cloned copy must remove nothing.
func checkOrphanFree(db *relation.Database, report *Report) {
	clone := cloneForCheck(db)
	before := rowCounts(db)
	gc.Collect(clone)
	after := rowCounts(clone)
	for table, n := range before {
		if after[table] != n {
			report.add("orphan-free", table, fmt.Sprintf("garbage collection would still remove %d row(s)", n-after[table]))
		}
	}
}

// allBlank reports whether every column in subset is empty/nil (or an
// int64 zero) on row; such rows are not checked against the unique
// constraint. TagMap rows with only one blank column, which tag a
// Location or PlaylistItem instead of a Note, are skipped separately in
// checkUniqueConstraints, as the Identity Reconciler skips them.
func allBlank(subset []string, row relation.Row) bool {
	for _, col := range subset {
		v := row[col]
		if v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return false
			}
		case int64:
			if t != 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func rowCounts(db *relation.Database) map[string]int {
	counts := make(map[string]int, len(db.Tables))
	for name, t := range db.Tables {
		counts[name] = len(t.Rows)
	}
	return counts
}

// cloneForCheck makes a deep-enough copy for a dry-run GC pass: new row
// maps so gc.Collect's in-place deletes/edits never touch the real data.
func cloneForCheck(db *relation.Database) *relation.Database {
	clone := relation.NewDatabase()
	for name, t := range db.Tables {
		ct := clone.TableOrCreate(t.Schema)
		for _, row := range t.Rows {
			copied := make(relation.Row, len(row))
			for k, v := range row {
				copied[k] = v
			}
			ct.Append(copied)
		}
		ct.ReindexByPK()
	}
	return clone
}
