// Package reconcile implements identity reconciliation: three
// sub-phases that collapse duplicate rows produced by merging
// independently-numbered sources into a single consistent identity per
// real-world entity.
package reconcile

import "github.com/jwlmerge/jwlmerge/internal/relation"

// Reconcile runs Phase A (exact-duplicate collapse), Phase B
// (constraint-driven merge, including text-merge), then Phase C
// (ignore-column dedup), in that required order. order is the table
// processing order from internal/graph, parent tables first.
func Reconcile(db *relation.Database, order []string) {
	PhaseA(db, order)
	PhaseB(db)
	PhaseC(db)
}
