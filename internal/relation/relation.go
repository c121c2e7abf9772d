// Package relation holds the in-memory representation of a JW Library
// backup database: schema metadata discovered from SQLite and the row
// data loaded from one or more sources, as it is carried through
// reconciliation, garbage collection, and key compaction.
package relation

// FK describes a single foreign key column pointing from one table to
// the primary key of another.
type FK struct {
	Column       string // column in this table holding the foreign key
	RefTable     string // table the foreign key points at
	RefColumn    string // column in RefTable being referenced (its PK)
}

// Schema describes one table's shape as introspected from SQLite.
type Schema struct {
	Table   string
	Columns []string // ordered column names, as returned by pragma_table_info
	PKs     []string // ordered primary key column(s); empty for keyless tables
	FKs     []FK
}

// SingleColumn reports whether this table has exactly one column, which
// the original merge tool treats as a pure junction/lookup table never
// subject to PK renumbering (e.g. a table with only a PK column and no
// other data).
func (s *Schema) SingleColumn() bool {
	return len(s.Columns) == 1
}

// Composite reports whether the table's primary key spans multiple
// columns, which excludes it from single-column-PK operations such as
// dense renumbering.
func (s *Schema) Composite() bool {
	return len(s.PKs) > 1
}

// Keyless reports whether the table has no declared primary key.
func (s *Schema) Keyless() bool {
	return len(s.PKs) == 0
}

// Row is one table row, column name to value. NULLs are normalized to
// the empty string on load so comparisons and dedup keys never have to
// special-case nil.
type Row map[string]any

// Table holds the ordered rows loaded for one table, plus an index from
// primary key value to row position for O(1) remap application.
type Table struct {
	Schema *Schema
	Rows   []Row

	byPK map[int64]int // PK value -> index into Rows; nil for keyless/composite/single-column tables
}

// NewTable creates an empty table for the given schema.
func NewTable(schema *Schema) *Table {
	return &Table{Schema: schema}
}

// PKColumn returns the table's sole primary key column name, or "" if
// the table is keyless, composite, or single-column.
func (t *Table) PKColumn() string {
	if t.Schema.Keyless() || t.Schema.Composite() || t.Schema.SingleColumn() {
		return ""
	}
	return t.Schema.PKs[0]
}

// ReindexByPK rebuilds the PK -> row-index map. Call after any
// structural mutation (append, delete, reorder) to the Rows slice.
func (t *Table) ReindexByPK() {
	pk := t.PKColumn()
	if pk == "" {
		t.byPK = nil
		return
	}
	t.byPK = make(map[int64]int, len(t.Rows))
	for i, row := range t.Rows {
		if v, ok := AsInt64(row[pk]); ok {
			t.byPK[v] = i
		}
	}
}

// RowByPK looks up a row by its primary key value using the cached
// index, falling back to a linear scan if the index hasn't been built.
func (t *Table) RowByPK(pk int64) (Row, bool) {
	if t.byPK != nil {
		if i, ok := t.byPK[pk]; ok {
			return t.Rows[i], true
		}
		return nil, false
	}
	col := t.PKColumn()
	if col == "" {
		return nil, false
	}
	for _, row := range t.Rows {
		if v, ok := AsInt64(row[col]); ok && v == pk {
			return row, true
		}
	}
	return nil, false
}

// Append adds a row and invalidates the PK index (caller should call
// ReindexByPK once after a batch of appends).
func (t *Table) Append(row Row) {
	t.Rows = append(t.Rows, row)
}

// Database is the full in-memory merge workspace: every table's schema
// and rows, keyed by table name. The Loader populates it, the
// Reconciler/GC/Compactor mutate it in place, and the Writer serializes
// it back to SQLite.
type Database struct {
	Tables map[string]*Table
}

// NewDatabase creates an empty Database.
func NewDatabase() *Database {
	return &Database{Tables: make(map[string]*Table)}
}

// TableOrCreate returns the named table, creating an empty one against the
// given schema if it doesn't exist yet.
func (d *Database) TableOrCreate(schema *Schema) *Table {
	if t, ok := d.Tables[schema.Table]; ok {
		return t
	}
	t := NewTable(schema)
	d.Tables[schema.Table] = t
	d.Tables[schema.Table].Schema = schema
	return t
}

// Has reports whether a table with the given name exists.
func (d *Database) Has(name string) bool {
	_, ok := d.Tables[name]
	return ok
}

// TableNames returns every table name present in the database, in no
// particular order; callers needing dependency order should consult
// internal/graph instead.
func (d *Database) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	for name := range d.Tables {
		names = append(names, name)
	}
	return names
}

// AsInt64 attempts to interpret v as an integer primary/foreign key
// value. Loaded rows carry driver-native types (int64 from SQLite), but
// remap dictionaries and test fixtures may supply plain int; int64,
// int and float64 are accepted.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
