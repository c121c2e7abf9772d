// Package schemascan introspects a JW Library SQLite database and
// produces the relation.Schema map the rest of the merge pipeline needs,
// by querying sqlite_master and the pragma_table_info/
// pragma_foreign_key_list virtual tables.
package schemascan

import (
	"database/sql"
	"fmt"

	"github.com/jwlmerge/jwlmerge/internal/relation"
)

// Scanned is the result of introspecting one source database: the
// per-table schema map plus the raw index/trigger SQL text captured so
// the Persistence Writer can recreate them on the merged database.
type Scanned struct {
	Schemas  map[string]*relation.Schema
	Indexes  []string // CREATE INDEX statements, as stored in sqlite_master
	Triggers []string // CREATE TRIGGER statements, as stored in sqlite_master
}

// ErrNoTables is returned when a source database contains zero tables,
// which the orchestrator treats as a SourceUnreadable failure.
var ErrNoTables = fmt.Errorf("schemascan: source database has no tables")

// Scan introspects every user table in db and returns their schemas
// plus captured index/trigger definitions.
func Scan(db *sql.DB) (*Scanned, error) {
	tables, err := tableNames(db)
	if err != nil {
		return nil, fmt.Errorf("schemascan: listing tables: %w", err)
	}
	if len(tables) == 0 {
		return nil, ErrNoTables
	}

	schemas := make(map[string]*relation.Schema, len(tables))
	for _, name := range tables {
		schema, err := scanTable(db, name)
		if err != nil {
			return nil, fmt.Errorf("schemascan: table %q: %w", name, err)
		}
		schemas[name] = schema
	}

	indexes, err := sqlStatements(db, "index")
	if err != nil {
		return nil, fmt.Errorf("schemascan: collecting indexes: %w", err)
	}
	triggers, err := sqlStatements(db, "trigger")
	if err != nil {
		return nil, fmt.Errorf("schemascan: collecting triggers: %w", err)
	}

	return &Scanned{Schemas: schemas, Indexes: indexes, Triggers: triggers}, nil
}

func tableNames(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanTable(db *sql.DB, table string) (*relation.Schema, error) {
	columns, pks, err := columnsAndPKs(db, table)
	if err != nil {
		return nil, err
	}
	fks, err := foreignKeys(db, table)
	if err != nil {
		return nil, err
	}
	return &relation.Schema{Table: table, Columns: columns, PKs: pks, FKs: fks}, nil
}

func columnsAndPKs(db *sql.DB, table string) (columns []string, pks []string, err error) {
	rows, err := db.Query(fmt.Sprintf(`SELECT name, pk FROM pragma_table_info('%s') ORDER BY cid`, table))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type pkOrdinal struct {
		name    string
		ordinal int
	}
	var pkCols []pkOrdinal

	for rows.Next() {
		var name string
		var pk int
		if err := rows.Scan(&name, &pk); err != nil {
			return nil, nil, err
		}
		columns = append(columns, name)
		if pk > 0 {
			pkCols = append(pkCols, pkOrdinal{name: name, ordinal: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	// pragma_table_info's pk column is the 1-based position within a
	// composite key, so sort on it to get declaration order right.
	for i := 0; i < len(pkCols); i++ {
		for j := i + 1; j < len(pkCols); j++ {
			if pkCols[j].ordinal < pkCols[i].ordinal {
				pkCols[i], pkCols[j] = pkCols[j], pkCols[i]
			}
		}
	}
	for _, p := range pkCols {
		pks = append(pks, p.name)
	}
	return columns, pks, nil
}

func foreignKeys(db *sql.DB, table string) ([]relation.FK, error) {
	rows, err := db.Query(fmt.Sprintf(`SELECT "table", "from", "to" FROM pragma_foreign_key_list('%s')`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []relation.FK
	for rows.Next() {
		var refTable, from string
		var to sql.NullString
		if err := rows.Scan(&refTable, &from, &to); err != nil {
			return nil, err
		}
		refColumn := to.String
		if !to.Valid {
			// No explicit "to" column means the FK targets the parent's
			// own primary key; resolve it so callers always see a usable
			// FKEdge without special-casing this SQLite shorthand.
			if pk, err := singlePK(db, refTable); err == nil {
				refColumn = pk
			}
		}
		fks = append(fks, relation.FK{Column: from, RefTable: refTable, RefColumn: refColumn})
	}
	return fks, rows.Err()
}

func singlePK(db *sql.DB, table string) (string, error) {
	_, pks, err := columnsAndPKs(db, table)
	if err != nil {
		return "", err
	}
	if len(pks) != 1 {
		return "", fmt.Errorf("table %q has no single primary key to resolve implicit FK target", table)
	}
	return pks[0], nil
}

func sqlStatements(db *sql.DB, kind string) ([]string, error) {
	rows, err := db.Query(`SELECT sql FROM sqlite_master WHERE type = ? AND sql IS NOT NULL`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var stmts []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return nil, err
		}
		if stmt == "" || seen[stmt] {
			continue
		}
		seen[stmt] = true
		stmts = append(stmts, stmt)
	}
	return stmts, rows.Err()
}
