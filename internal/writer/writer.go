// Package writer rebuilds one source's copy of the merged database in
// place: drop triggers/indexes, delete every row, stamp LastModified,
// insert the merged rows in FK dependency order, recreate
// triggers/indexes, vacuum. It is
// a single-database DELETE-then-INSERT rebuild rather than a dual
// source/destination diff, since there is no destination to diff
// against.
package writer

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jwlmerge/jwlmerge/internal/logger"
	"github.com/jwlmerge/jwlmerge/internal/relation"
	"github.com/jwlmerge/jwlmerge/internal/schemascan"
	"github.com/jwlmerge/jwlmerge/internal/sqlutil"
)

// Stats reports what the write pass did, the jwlmerge analog of the
// teacher's CopyStats.
type Stats struct {
	TablesWritten int
	RowsWritten   int64
	Duration      time.Duration
	RowsPerTable  map[string]int64
	InsertErrors  []error // accumulated, non-fatal: one row failing never aborts the whole write
}

// Write rebuilds db's schema objects and rows to match the merged
// relation.Database, processing tables in order (parents before
// dependents, from internal/graph's topological sort). Foreign key
// enforcement is switched off while rows are deleted and inserted and
// switched back on afterward. The LastModified table receives a single
// row holding the current UTC time instead of the merged rows.
func Write(ctx context.Context, db *sql.DB, merged *relation.Database, scanned *schemascan.Scanned, order []string, log *logger.Logger) (*Stats, error) {
	start := time.Now()
	stats := &Stats{RowsPerTable: make(map[string]int64, len(order))}

	log.Debug("beginning persistence write")

	if err := dropIndexesAndTriggers(ctx, db, scanned); err != nil {
		return nil, fmt.Errorf("writer: dropping indexes/triggers: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return nil, fmt.Errorf("writer: disabling foreign key checks for rebuild: %w", err)
	}

	if err := deleteAllRows(ctx, db, order); err != nil {
		return nil, fmt.Errorf("writer: clearing existing rows: %w", err)
	}

	if _, ok := merged.Tables["LastModified"]; ok {
		stamp := time.Now().UTC().Format("2006-01-02T15:04:05Z")
		if _, err := db.ExecContext(ctx, `INSERT INTO "LastModified" ("LastModified") VALUES (?)`, stamp); err != nil {
			stats.InsertErrors = append(stats.InsertErrors, fmt.Errorf("table %q: inserting timestamp: %w", "LastModified", err))
		}
	}

	for _, name := range order {
		if name == "LastModified" {
			continue
		}
		table, ok := merged.Tables[name]
		if !ok || len(table.Rows) == 0 {
			log.Debugf("skipping table %q (no rows to write)", name)
			continue
		}

		written, rowErrs, err := writeTable(ctx, db, table)
		if err != nil {
			return nil, fmt.Errorf("writer: writing table %q: %w", name, err)
		}
		stats.TablesWritten++
		stats.RowsWritten += written
		stats.RowsPerTable[name] = written
		stats.InsertErrors = append(stats.InsertErrors, rowErrs...)
		log.Debugf("wrote %d rows into %q (%d row error(s))", written, name, len(rowErrs))
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("writer: re-enabling foreign key checks: %w", err)
	}

	if err := recreateIndexesAndTriggers(ctx, db, scanned); err != nil {
		return nil, fmt.Errorf("writer: recreating indexes/triggers: %w", err)
	}

	if err := vacuum(ctx, db); err != nil {
		return nil, fmt.Errorf("writer: vacuuming: %w", err)
	}
	if err := vacuum(ctx, db); err != nil {
		return nil, fmt.Errorf("writer: second vacuum pass: %w", err)
	}

	stats.Duration = time.Since(start)
	log.Infof("persistence write complete: %d tables, %d rows, duration %s",
		stats.TablesWritten, stats.RowsWritten, stats.Duration)

	return stats, nil
}

func dropIndexesAndTriggers(ctx context.Context, db *sql.DB, scanned *schemascan.Scanned) error {
	rows, err := db.QueryContext(ctx, `SELECT name, type FROM sqlite_master WHERE type IN ('index','trigger') AND sql IS NOT NULL`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var names, kinds []string
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return err
		}
		names = append(names, name)
		kinds = append(kinds, kind)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i, name := range names {
		stmt := fmt.Sprintf("DROP %s IF EXISTS %s", strings.ToUpper(kinds[i]), sqlutil.QuoteIdentifier(name))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("dropping %s %q: %w", kinds[i], name, err)
		}
	}
	return nil
}

func recreateIndexesAndTriggers(ctx context.Context, db *sql.DB, scanned *schemascan.Scanned) error {
	for _, stmt := range scanned.Indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("recreating index: %w", err)
		}
	}
	for _, stmt := range scanned.Triggers {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("recreating trigger: %w", err)
		}
	}
	return nil
}

// deleteAllRows clears every table in reverse order (dependents before
// parents) so that, even with foreign keys briefly disabled, the table
// ends up empty in an order a reader would recognize as intentional.
func deleteAllRows(ctx context.Context, db *sql.DB, order []string) error {
	for i := len(order) - 1; i >= 0; i-- {
		stmt := fmt.Sprintf("DELETE FROM %s", sqlutil.QuoteIdentifier(order[i]))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing table %q: %w", order[i], err)
		}
	}
	return nil
}

// writeTable inserts every row of table within its own transaction,
// normalizing "" back to NULL (the inverse of the loader's
// NULL-to-"" normalization), and accumulates per-row failures instead
// of aborting the whole table on the first one.
func writeTable(ctx context.Context, db *sql.DB, table *relation.Table) (int64, []error, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	columns := table.Schema.Columns
	insertStmt := buildInsertQuery(table.Schema.Table, columns)
	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		return 0, nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var written int64
	var rowErrs []error
	for _, row := range table.Rows {
		values := make([]any, len(columns))
		for i, col := range columns {
			values[i] = denormalizeCell(col, row[col])
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("table %q: inserting row: %w", table.Schema.Table, err))
			continue
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return written, rowErrs, fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return written, rowErrs, nil
}

func buildInsertQuery(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = "?"
		quoted[i] = sqlutil.QuoteIdentifier(col)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlutil.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

// denormalizeCell turns the in-memory "" sentinel back into a real SQL
// NULL, except in columns named like InputField.Value or
// InputField.TextTag where "" is the column's genuine content rather
// than a stand-in for NULL. Any other numeric-looking string value is
// coerced to an integer, mirroring the original's
// `None if cell=="" and not ("Text" in col or "Value" in col) else
// int(cell) if str(cell).isnumeric() else cell`.
func denormalizeCell(col string, v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if s == "" {
		if strings.Contains(col, "Text") || strings.Contains(col, "Value") {
			return s
		}
		return nil
	}
	if isNumeric(s) {
		n, err := strconv.Atoi(s)
		if err == nil {
			return n
		}
	}
	return s
}

// isNumeric mirrors Python's str.isnumeric() for the ASCII digit
// strings this data actually contains: non-empty and all digits.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func vacuum(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "VACUUM")
	return err
}
