// Package preflight validates every source archive before any merge
// work starts: each is readable, contains exactly one .db and a
// manifest.json, and all sources share the same schema shape (table
// set, primary keys, foreign key count). Checks run independently and
// report every violation rather than stopping at the first one.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jwlmerge/jwlmerge/internal/logger"
	"github.com/jwlmerge/jwlmerge/internal/relation"
)

// Violation describes one failed preflight check.
type Violation struct {
	Check   string
	Archive string
	Message string
}

func (v Violation) String() string {
	if v.Archive != "" {
		return fmt.Sprintf("%s: %s: %s", v.Check, v.Archive, v.Message)
	}
	return fmt.Sprintf("%s: %s", v.Check, v.Message)
}

// Error aggregates every violation found, returned from the Check*
// functions when at least one check fails.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("preflight: %d check(s) failed", len(e.Violations))
	for _, v := range e.Violations {
		msg += "\n  " + v.String()
	}
	return msg
}

// CheckArchivePaths validates that every path in paths exists and ends
// in .jwlibrary, the cheapest check, run before anything touches the
// filesystem further.
func CheckArchivePaths(paths []string) error {
	var violations []Violation
	if len(paths) < 2 {
		violations = append(violations, Violation{
			Check:   "archive-count",
			Message: fmt.Sprintf("merging requires at least 2 archives, got %d", len(paths)),
		})
	}
	for _, p := range paths {
		if filepath.Ext(p) != ".jwlibrary" {
			violations = append(violations, Violation{Check: "archive-extension", Archive: p, Message: "expected a .jwlibrary file"})
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			violations = append(violations, Violation{Check: "archive-readable", Archive: p, Message: err.Error()})
			continue
		}
		if info.IsDir() {
			violations = append(violations, Violation{Check: "archive-readable", Archive: p, Message: "is a directory, expected a file"})
		}
	}
	if len(violations) > 0 {
		return &Error{Violations: violations}
	}
	return nil
}

// CheckExtractedLayout validates that an already-extracted source
// directory contains exactly one .db file and a manifest.json.
func CheckExtractedLayout(dir string) error {
	var violations []Violation

	dbMatches, err := filepath.Glob(filepath.Join(dir, "*.db"))
	if err != nil {
		violations = append(violations, Violation{Check: "db-file", Archive: dir, Message: err.Error()})
	} else if len(dbMatches) == 0 {
		violations = append(violations, Violation{Check: "db-file", Archive: dir, Message: "no .db file found"})
	} else if len(dbMatches) > 1 {
		violations = append(violations, Violation{Check: "db-file", Archive: dir, Message: fmt.Sprintf("expected exactly one .db file, found %d", len(dbMatches))})
	}

	manifestPath := filepath.Join(dir, "manifest.json")
	if info, err := os.Stat(manifestPath); err != nil || info.IsDir() {
		violations = append(violations, Violation{Check: "manifest", Archive: dir, Message: "manifest.json not found"})
	}

	if len(violations) > 0 {
		return &Error{Violations: violations}
	}
	return nil
}

// CheckSchemaParity validates that every source's schema map agrees on
// table set, primary keys, and number of foreign keys with the first
// source; the foreign key targets themselves are not compared.
// Compatible JW Library backups share the same recognized domain
// tables, but nothing upstream enforces that before this check.
func CheckSchemaParity(schemas []map[string]*relation.Schema, archiveNames []string) error {
	if len(schemas) == 0 {
		return nil
	}
	var violations []Violation
	reference := schemas[0]

	for i := 1; i < len(schemas); i++ {
		name := archiveNames[i]
		for table, refSchema := range reference {
			schema, ok := schemas[i][table]
			if !ok {
				violations = append(violations, Violation{Check: "schema-parity", Archive: name, Message: fmt.Sprintf("missing table %q present in %s", table, archiveNames[0])})
				continue
			}
			if !stringSlicesEqualUnordered(refSchema.PKs, schema.PKs) {
				violations = append(violations, Violation{Check: "schema-parity", Archive: name,
					Message: fmt.Sprintf("table %q has primary keys %v, expected %v", table, schema.PKs, refSchema.PKs)})
			}
			if len(refSchema.FKs) != len(schema.FKs) {
				violations = append(violations, Violation{Check: "schema-parity", Archive: name,
					Message: fmt.Sprintf("table %q has %d foreign keys, expected %d", table, len(schema.FKs), len(refSchema.FKs))})
			}
		}
		for table := range schemas[i] {
			if _, ok := reference[table]; !ok {
				violations = append(violations, Violation{Check: "schema-parity", Archive: name, Message: fmt.Sprintf("has extra table %q not present in %s", table, archiveNames[0])})
			}
		}
	}

	if len(violations) > 0 {
		return &Error{Violations: violations}
	}
	return nil
}

func stringSlicesEqualUnordered(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := append([]string(nil), a...)
	sortedB := append([]string(nil), b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)
	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}

// Run executes CheckArchivePaths, logging a single PASSED/FAILED
// summary line, and returns its aggregated *Error if it failed. The
// extracted-layout and schema-parity checks are not run here.
func Run(paths []string, log *logger.Logger) error {
	log.Info("running preflight checks")
	if err := CheckArchivePaths(paths); err != nil {
		log.Errorf("preflight checks FAILED: %v", err)
		return err
	}
	log.Info("preflight checks PASSED")
	return nil
}
