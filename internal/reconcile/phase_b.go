package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jwlmerge/jwlmerge/internal/relation"
	"github.com/jwlmerge/jwlmerge/internal/textdiff"
)

// PhaseB enforces the domain-fixed unique constraints in constraints:
// for each constraint, rows sharing the constrained column values
// collapse onto a single survivor, with free-text columns diff-merged
// rather than silently dropped on tables configured for text-merge.
func PhaseB(db *relation.Database) {
	for _, c := range constraints {
		table, ok := db.Tables[c.Table]
		if !ok {
			continue
		}
		applyConstraint(db, table, c.Subset)
	}
}

func applyConstraint(db *relation.Database, table *relation.Table, subset []string) {
	schema := table.Schema
	if schema.Keyless() || schema.Composite() || len(schema.PKs) == 0 {
		return
	}
	pkColumn := schema.PKs[0]

	if schema.Table == "Note" {
		sortByLastModifiedDescending(table.Rows)
		table.ReindexByPK()
	}

	candidates := table.Rows
	if schema.Table == "TagMap" && len(subset) == 2 {
		candidates = nonBlankPairRows(table.Rows, subset[0], subset[1])
	}

	groups := make(map[string][]int64)
	var order []string
	for _, row := range candidates {
		pk, ok := relation.AsInt64(row[pkColumn])
		if !ok {
			continue
		}
		key := relation.RowKey(subset, row)
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
	if len(replacements) == 0 {
		return
	}

	if mergedCols, mergeText := textMergeColumns[schema.Table]; mergeText {
		mergeTextDuplicates(table, pkColumn, mergedCols, replacements)
		db.RemapForeignKeys(schema.Table, replacements)
		return
	}

	db.RemapPrimaryKey(schema.Table, replacements)
}

// mergeTextDuplicates merges named text columns from each duplicate row
// into its survivor, then drops the duplicate row outright (its own PK
// is never remapped -- only the table's FK dependents are, by the
// caller).
func mergeTextDuplicates(table *relation.Table, pkColumn string, textColumns []string, replacements map[int64]int64) {
	for oldPK, survivorPK := range replacements {
		oldRow, ok := table.RowByPK(oldPK)
		if !ok {
			continue
		}
		survivorRow, ok := table.RowByPK(survivorPK)
		if !ok {
			continue
		}
		for _, col := range textColumns {
			oldText := asString(oldRow[col])
			newText := asString(survivorRow[col])
			if len(oldText) == 0 {
				continue
			}
			if strings.TrimSpace(newText) == strings.TrimSpace(oldText) {
				continue
			}
			if strings.TrimSpace(newText) == "" {
				// An empty survivor just inherits the duplicate's text
				// verbatim instead of rendering a diff with nothing on
				// the "+" side.
				survivorRow[col] = oldText
				continue
			}
			survivorRow[col] = textdiff.Render(oldText, newText)
		}
	}

	kept := table.Rows[:0]
	drop := make(map[int64]bool, len(replacements))
	for old := range replacements {
		drop[old] = true
	}
	for _, row := range table.Rows {
		pk, ok := relation.AsInt64(row[pkColumn])
		if ok && drop[pk] {
			continue
		}
		kept = append(kept, row)
	}
	table.Rows = kept
	table.ReindexByPK()
}

func nonBlankPairRows(rows []relation.Row, colA, colB string) []relation.Row {
	var out []relation.Row
	for _, row := range rows {
		if asString(row[colA]) != "" && asString(row[colB]) != "" {
			out = append(out, row)
		}
	}
	return out
}

func sortByLastModifiedDescending(rows []relation.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return asString(rows[i]["LastModified"]) > asString(rows[j]["LastModified"])
	})
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}
