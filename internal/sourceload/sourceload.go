// Package sourceload reads each source database's tables into a shared
// relation.Database, applying the PK/FK offset-floor stride that keeps
// independently-numbered sources from colliding.
package sourceload

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/jwlmerge/jwlmerge/internal/relation"
)

// Stride is the PK/FK offset granularity: every newly-loaded source's
// key columns are shifted up to the smallest multiple of Stride that is
// strictly greater than the running maximum PK already loaded.
const Stride = 100000

// ErrOffsetStrideExceeded is returned when a single source's own
// maximum primary key is already >= Stride, which would make the
// offset floor collide with that source's own un-offset keys. The
// original tool has no such guard and would silently corrupt data in
// this case; this is a deliberate redesign (see SPEC_FULL.md §9).
var ErrOffsetStrideExceeded = fmt.Errorf("sourceload: source's maximum primary key meets or exceeds the %d offset stride", Stride)

// Loader accumulates rows from successive sources into one
// relation.Database, tracking the running PK floor across all tables
// loaded so far.
type Loader struct {
	db *relation.Database
}

// NewLoader creates a Loader writing into db.
func NewLoader(db *relation.Database) *Loader {
	return &Loader{db: db}
}

// currentFloor returns the smallest multiple of Stride strictly greater
// than the highest PK value across every loaded table, mirroring
// get_primary_key_floor. Returns 0 if nothing has been loaded yet (the
// first source is never offset).
func (l *Loader) currentFloor() int64 {
	var highest int64 = -1
	found := false
	for _, t := range l.db.Tables {
		pk := t.PKColumn()
		if pk == "" {
			continue
		}
		for _, row := range t.Rows {
			if v, ok := relation.AsInt64(row[pk]); ok {
				if !found || v > highest {
					highest = v
					found = true
				}
			}
		}
	}
	if !found {
		return 0
	}
	return int64(math.Ceil(float64(highest+1)/float64(Stride))) * Stride
}

// LoadSource reads every table named in schemas from db into the
// Loader's shared relation.Database, offsetting PK/FK columns by the
// current floor for every source after the first.
func (l *Loader) LoadSource(db *sql.DB, schemas map[string]*relation.Schema) error {
	floor := l.currentFloor()

	// Validate the guard before mutating anything, so a rejected source
	// never leaves the shared database partially loaded.
	if floor > 0 {
		for name, schema := range schemas {
			if schema.SingleColumn() || schema.Keyless() || schema.Composite() {
				continue
			}
			maxPK, err := maxPrimaryKey(db, name, schema.PKs[0])
			if err != nil {
				return fmt.Errorf("sourceload: %w", err)
			}
			if maxPK >= Stride {
				return ErrOffsetStrideExceeded
			}
		}
	}

	// keyColumns is every column anywhere in the schema set that is
	// either a primary key ending in "Id" or any foreign key column,
	// computed once up front before offsetting any of them.
	keyColumns := keyColumnSet(schemas)

	for name, schema := range schemas {
		table := l.db.TableOrCreate(schema)
		rows, err := readTable(db, schema)
		if err != nil {
			return fmt.Errorf("sourceload: reading table %q: %w", name, err)
		}
		if floor > 0 && !schema.SingleColumn() {
			for _, row := range rows {
				for col := range row {
					if !keyColumns[col] {
						continue
					}
					if v, ok := relation.AsInt64(row[col]); ok {
						row[col] = v + floor
					}
				}
			}
		}
		for _, row := range rows {
			table.Append(row)
		}
		table.ReindexByPK()
	}
	return nil
}

// keyColumnSet mirrors the original's "key_list": every FK column plus
// every primary key column whose name ends in "Id" (JW Library's
// surrogate-key naming convention), across all tables.
func keyColumnSet(schemas map[string]*relation.Schema) map[string]bool {
	set := make(map[string]bool)
	for _, schema := range schemas {
		for _, fk := range schema.FKs {
			set[fk.Column] = true
		}
		if len(schema.PKs) == 1 {
			name := schema.PKs[0]
			if len(name) > 2 && name[len(name)-2:] == "Id" {
				set[name] = true
			}
		}
	}
	return set
}

func maxPrimaryKey(db *sql.DB, table, pkColumn string) (int64, error) {
	var max sql.NullInt64
	query := fmt.Sprintf(`SELECT MAX("%s") FROM "%s"`, pkColumn, table)
	if err := db.QueryRow(query).Scan(&max); err != nil {
		return 0, fmt.Errorf("computing max(%s) for %s: %w", pkColumn, table, err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

func readTable(db *sql.DB, schema *relation.Schema) ([]relation.Row, error) {
	query := fmt.Sprintf(`SELECT * FROM "%s"`, schema.Table)
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []relation.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(relation.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeCell(values[i])
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// normalizeCell turns a driver NULL into "" (matching the original
// tool's DataFrame fillna("")) and []byte TEXT values into plain
// strings.
func normalizeCell(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	default:
		return val
	}
}
