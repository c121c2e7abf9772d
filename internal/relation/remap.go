package relation

// FKEdge names one (table, column) pair that holds a foreign key
// pointing at RefTable.RefColumn, used to drive cascades of PK
// remapping and deletion across the whole database.
type FKEdge struct {
	Table     string
	Column    string
	RefTable  string
	RefColumn string
}

// FKEdgesInto returns every FK edge in the database that references
// refTable's given column, i.e. every place a remap or delete of a
// refTable row must be propagated to.
func (d *Database) FKEdgesInto(refTable, refColumn string) []FKEdge {
	var edges []FKEdge
	for name, t := range d.Tables {
		for _, fk := range t.Schema.FKs {
			if fk.RefTable == refTable && fk.RefColumn == refColumn {
				edges = append(edges, FKEdge{
					Table:     name,
					Column:    fk.Column,
					RefTable:  refTable,
					RefColumn: refColumn,
				})
			}
		}
	}
	return edges
}

// RemapPrimaryKey applies replacements (old PK value -> new PK value)
// to table's primary key column, then drops any rows that became exact
// duplicates as a result, and propagates the same replacement to every
// table with an FK pointing at it.
func (d *Database) RemapPrimaryKey(table string, replacements map[int64]int64) {
	if len(replacements) == 0 {
		return
	}
	d.RemapForeignKeys(table, replacements)

	t, ok := d.Tables[table]
	if !ok {
		return
	}
	pk := t.PKColumn()
	if pk == "" {
		return
	}
	for _, row := range t.Rows {
		if v, ok := AsInt64(row[pk]); ok {
			if nv, remapped := replacements[v]; remapped {
				row[pk] = nv
			}
		}
	}
	dropExactDuplicates(t)
	t.ReindexByPK()
}

// RemapForeignKeys applies replacements to every column across the
// database that holds a foreign key into table's primary key, dropping
// resulting exact duplicates in each affected table.
func (d *Database) RemapForeignKeys(table string, replacements map[int64]int64) {
	if len(replacements) == 0 {
		return
	}
	refCol := ""
	if t, ok := d.Tables[table]; ok {
		refCol = t.PKColumn()
	}
	if refCol == "" {
		return
	}
	for _, edge := range d.FKEdgesInto(table, refCol) {
		ct, ok := d.Tables[edge.Table]
		if !ok {
			continue
		}
		changed := false
		for _, row := range ct.Rows {
			if v, ok := AsInt64(row[edge.Column]); ok {
				if nv, remapped := replacements[v]; remapped {
					row[edge.Column] = nv
					changed = true
				}
			}
		}
		if changed {
			dropExactDuplicates(ct)
			ct.ReindexByPK()
		}
	}
}

// RemoveReferencesTo deletes every row, anywhere in the database, whose
// foreign key into table.column equals value -- the cascade half of
// the orphan-removal rules (e.g. dropping a Note also drops its
// TagMap rows).
func (d *Database) RemoveReferencesTo(table, column string, value int64) {
	for _, edge := range d.FKEdgesInto(table, column) {
		ct, ok := d.Tables[edge.Table]
		if !ok {
			continue
		}
		kept := ct.Rows[:0]
		for _, row := range ct.Rows {
			if v, ok := AsInt64(row[edge.Column]); ok && v == value {
				continue
			}
			kept = append(kept, row)
		}
		ct.Rows = kept
		ct.ReindexByPK()
	}
}

// dropExactDuplicates removes rows that are now byte-for-byte identical
// to an earlier row in the same table, keeping the first occurrence --
// the Go equivalent of pandas' drop_duplicates(keep="first").
func dropExactDuplicates(t *Table) {
	seen := make(map[string]bool, len(t.Rows))
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		key := rowKey(t.Schema.Columns, row)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	t.Rows = kept
}
