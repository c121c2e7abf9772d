// Package graph builds and traverses the foreign-key dependency graph
// over a jwlmerge relation.Database: which tables must be processed
// before which others so that reconciliation, compaction, and
// insertion all run parent-before-dependent.
package graph

// Node represents one table in the dependency graph.
type Node struct {
	Name string
}

// Edge represents a single FK edge: a row in From has a column that
// references a row in To. Processing order runs To before From.
type Edge struct {
	From   string // table holding the FK column
	To     string // table the FK column references
	Column string // FK column name in From
}

// Graph is the FK dependency graph over a set of tables. Unlike the
// single-rooted tree the original archiving job config described,
// jwlmerge's tables form a DAG with many roots (every table with no
// outgoing FK is a root of its own subtree).
type Graph struct {
	Nodes    map[string]*Node
	Children map[string][]string // table -> tables that reference it (dependents)
	Parents  map[string][]string // table -> tables it references

	edgeMeta map[[2]string]*Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
		edgeMeta: make(map[[2]string]*Edge),
	}
}

// AddNode registers a table, creating it if not already present.
func (g *Graph) AddNode(name string) {
	if _, ok := g.Nodes[name]; ok {
		return
	}
	g.Nodes[name] = &Node{Name: name}
}

// AddEdge records that table `from` has a column referencing table
// `to`. `to` must be processed before `from` in dependency order.
func (g *Graph) AddEdge(from, to, column string) {
	g.AddNode(from)
	g.AddNode(to)
	g.Children[to] = append(g.Children[to], from)
	g.Parents[from] = append(g.Parents[from], to)
	g.edgeMeta[[2]string{from, to}] = &Edge{From: from, To: to, Column: column}
}

// HasNode reports whether name is a known table.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.Nodes[name]
	return ok
}

// AllNodes returns every table name in the graph, in no particular order.
func (g *Graph) AllNodes() []string {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	return names
}

// AllEdges returns every FK edge in the graph.
func (g *Graph) AllEdges() []Edge {
	edges := make([]Edge, 0, len(g.edgeMeta))
	for _, e := range g.edgeMeta {
		edges = append(edges, *e)
	}
	return edges
}

// GetChildren returns the tables that hold an FK pointing at parent.
func (g *Graph) GetChildren(parent string) []string {
	return g.Children[parent]
}

// GetParents returns the tables that `child` points at via FK.
func (g *Graph) GetParents(child string) []string {
	return g.Parents[child]
}

// InDegree returns the number of distinct parents a table depends on.
func (g *Graph) InDegree(name string) int {
	return len(g.Parents[name])
}

// OutDegree returns the number of dependents that reference a table.
func (g *Graph) OutDegree(name string) int {
	return len(g.Children[name])
}

// Roots returns tables with no outgoing FK (in-degree zero) — these
// can be processed, inserted, or compacted first.
func (g *Graph) Roots() []string {
	var roots []string
	for name := range g.Nodes {
		if len(g.Parents[name]) == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}
