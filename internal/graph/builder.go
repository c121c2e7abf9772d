package graph

import "github.com/jwlmerge/jwlmerge/internal/relation"

// BuildFromSchemas constructs the FK dependency graph directly from a
// relation.Database's schema map, discovered by internal/schemascan.
// Every table becomes a node; every FK becomes an edge from the
// referencing table to the table it points at.
func BuildFromSchemas(db *relation.Database) *Graph {
	g := NewGraph()

	for name := range db.Tables {
		g.AddNode(name)
	}

	for name, table := range db.Tables {
		for _, fk := range table.Schema.FKs {
			if fk.RefTable == "" || fk.RefTable == name {
				continue
			}
			g.AddEdge(name, fk.RefTable, fk.Column)
		}
	}

	return g
}
