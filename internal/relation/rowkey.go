package relation

import (
	"fmt"
	"strings"
)

// rowKey builds a deterministic string key for a row over the given
// column subset, used to detect exact-duplicate and natural-key
// collision rows without hashing full structs.
func rowKey(columns []string, row Row) string {
	var b strings.Builder
	for i, col := range columns {
		if i > 0 {
			b.WriteByte(0)
		}
		fmt.Fprintf(&b, "%v", row[col])
	}
	return b.String()
}

// RowKey exposes rowKey for the reconcile package, which needs to group
// rows by arbitrary column subsets (natural keys, unique constraints,
// ignore-column sets) rather than a table's full column list.
func RowKey(columns []string, row Row) string {
	return rowKey(columns, row)
}
