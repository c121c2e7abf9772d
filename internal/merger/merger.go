// Package merger implements the top-level merge orchestrator: it
// sequences schema introspection, table loading, identity
// reconciliation, referential garbage collection, key compaction, and
// the persistence writer over every supplied source archive, then hands
// the result to the archive packer and manifest rewriter. Unlike a
// long-running, resumable archival job, jwlmerge processes a whole
// database in one pass, so there is no per-batch checkpoint machinery.
package merger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jwlmerge/jwlmerge/internal/archivepkg"
	"github.com/jwlmerge/jwlmerge/internal/compact"
	"github.com/jwlmerge/jwlmerge/internal/config"
	"github.com/jwlmerge/jwlmerge/internal/database"
	"github.com/jwlmerge/jwlmerge/internal/gc"
	"github.com/jwlmerge/jwlmerge/internal/graph"
	"github.com/jwlmerge/jwlmerge/internal/lock"
	"github.com/jwlmerge/jwlmerge/internal/logger"
	"github.com/jwlmerge/jwlmerge/internal/manifest"
	"github.com/jwlmerge/jwlmerge/internal/media"
	"github.com/jwlmerge/jwlmerge/internal/preflight"
	"github.com/jwlmerge/jwlmerge/internal/reconcile"
	"github.com/jwlmerge/jwlmerge/internal/relation"
	"github.com/jwlmerge/jwlmerge/internal/schemascan"
	"github.com/jwlmerge/jwlmerge/internal/sourceload"
	"github.com/jwlmerge/jwlmerge/internal/verify"
	"github.com/jwlmerge/jwlmerge/internal/writer"
)

// Result reports what happened, how long it took, and what output a
// merge run produced.
type Result struct {
	OutputPath   string
	StartedAt    time.Time
	CompletedAt  time.Time
	Duration     time.Duration
	SourceCount  int
	TableStats   map[string]int64
	Verification *verify.Report // nil if --skip-verify was set
	Errors       []error        // non-fatal write errors, accumulated not aborted
}

// Merge runs the full pipeline over archivePaths and returns the path
// to the merged .jwlibrary output.
func Merge(ctx context.Context, cfg *config.Config, archivePaths []string, log *logger.Logger) (*Result, error) {
	if err := preflight.CheckArchivePaths(archivePaths); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	if err := os.MkdirAll(cfg.Merge.WorkingDir, 0o755); err != nil {
		return nil, fmt.Errorf("merger: creating working directory: %w", err)
	}

	var result *Result
	lockPath := filepath.Join(cfg.Merge.WorkingDir, ".jwlmerge.lock")
	err := lock.WithLock(ctx, lockPath, lock.TimeoutShort, func() error {
		r, err := runPipeline(ctx, cfg, archivePaths, log)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// discovered holds what preflight turns up about every source archive:
// its extraction directory, its .db path, its open connection, and its
// introspected schema -- the shared starting point for both a full
// merge and a preflight-only Validate call.
type discovered struct {
	sourceDirs []string
	dbPaths    []string
	conns      []*sourceConn
	scans      []*schemascan.Scanned
	schemaSets []map[string]*relation.Schema
}

// discoverSources extracts every archive, validates its layout, opens
// its database, and checks that every source shares a compatible
// schema. The caller owns closing the returned connections via
// closeAll, even on error (some sources may already be open).
func discoverSources(ctx context.Context, cfg *config.Config, archivePaths []string, log *logger.Logger) (*discovered, error) {
	log.Infof("extracting %d source archives", len(archivePaths))
	sourceDirs := make([]string, len(archivePaths))
	dbPaths := make([]string, len(archivePaths))
	for i, path := range archivePaths {
		dir, err := archivepkg.Extract(path, cfg.Merge.WorkingDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		}
		if err := preflight.CheckExtractedLayout(dir); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		}
		dbPath, err := archivepkg.FindDBFile(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		}
		sourceDirs[i] = dir
		dbPaths[i] = dbPath
	}

	schemaSets := make([]map[string]*relation.Schema, len(dbPaths))
	scans := make([]*schemascan.Scanned, len(dbPaths))
	conns := make([]*sourceConn, len(dbPaths))
	for i, dbPath := range dbPaths {
		conn, err := openSource(ctx, dbPath)
		if err != nil {
			closeAll(conns)
			return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		}
		conns[i] = conn
		scanned, err := schemascan.Scan(conn.db)
		if err != nil {
			closeAll(conns)
			return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		}
		scans[i] = scanned
		schemaSets[i] = scanned.Schemas
	}

	if err := preflight.CheckSchemaParity(schemaSets, archivePaths); err != nil {
		closeAll(conns)
		return nil, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}

	return &discovered{
		sourceDirs: sourceDirs,
		dbPaths:    dbPaths,
		conns:      conns,
		scans:      scans,
		schemaSets: schemaSets,
	}, nil
}

// Validate runs every preflight check (archive paths, extracted
// layout, schema parity) without loading or merging any rows -- the
// jwlmerge validate subcommand's underlying implementation.
func Validate(ctx context.Context, cfg *config.Config, archivePaths []string, log *logger.Logger) error {
	if err := preflight.CheckArchivePaths(archivePaths); err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	if err := os.MkdirAll(cfg.Merge.WorkingDir, 0o755); err != nil {
		return fmt.Errorf("merger: creating working directory: %w", err)
	}
	d, err := discoverSources(ctx, cfg, archivePaths, log)
	if err != nil {
		return err
	}
	closeAll(d.conns)
	return nil
}

func runPipeline(ctx context.Context, cfg *config.Config, archivePaths []string, log *logger.Logger) (*Result, error) {
	start := time.Now()
	result := &Result{StartedAt: start, SourceCount: len(archivePaths)}

	d, err := discoverSources(ctx, cfg, archivePaths, log)
	if err != nil {
		return nil, err
	}
	defer closeAll(d.conns)
	sourceDirs, dbPaths, conns, scans := d.sourceDirs, d.dbPaths, d.conns, d.scans

	log.Info("loading source tables")
	merged := relation.NewDatabase()
	loader := sourceload.NewLoader(merged)
	for i, conn := range conns {
		if err := loader.LoadSource(conn.db, d.schemaSets[0]); err != nil {
			if err == sourceload.ErrOffsetStrideExceeded {
				return nil, fmt.Errorf("%w: source %s", ErrOffsetStrideExceeded, archivePaths[i])
			}
			return nil, fmt.Errorf("merger: loading source %s: %w", archivePaths[i], err)
		}
	}

	dependencyGraph := graph.BuildFromSchemas(merged)
	order, err := dependencyGraph.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("merger: dependency graph: %w", err)
	}

	log.Info("reconciling identities")
	reconcile.Reconcile(merged, order)

	log.Info("collecting referential garbage")
	gc.Collect(merged)

	log.Info("compacting keys")
	compact.Compact(merged, order)

	if cfg.Merge.Debug {
		if err := dumpDebugJSON(cfg.Merge.WorkingDir, merged); err != nil {
			log.Warnf("failed writing debug dumps: %v", err)
		}
	}

	log.Info("writing merged database")
	mergedDBPath := filepath.Join(cfg.Merge.WorkingDir, "merged.db")
	if err := copyFile(dbPaths[0], mergedDBPath); err != nil {
		return nil, fmt.Errorf("merger: seeding merged database from first source: %w", err)
	}
	mergedDB, err := database.Open(ctx, mergedDBPath)
	if err != nil {
		return nil, fmt.Errorf("merger: opening merged database: %w", err)
	}
	defer mergedDB.Close()

	stats, err := writer.Write(ctx, mergedDB, merged, scans[0], order, log)
	if err != nil {
		return nil, fmt.Errorf("merger: writing merged database: %w", err)
	}
	result.TableStats = stats.RowsPerTable
	for _, e := range stats.InsertErrors {
		result.Errors = append(result.Errors, e)
	}
	if cfg.Merge.Debug && len(result.Errors) > 0 {
		if err := writeErrorLog(cfg.Merge.WorkingDir, result.Errors); err != nil {
			log.Warnf("failed writing errors.txt: %v", err)
		}
	}

	if err := os.MkdirAll(cfg.Merge.MergedDir, 0o755); err != nil {
		return nil, fmt.Errorf("merger: creating merged output directory: %w", err)
	}
	if err := seedMergedDir(sourceDirs[0], cfg.Merge.MergedDir); err != nil {
		return nil, fmt.Errorf("merger: seeding merged output directory: %w", err)
	}

	referencedFiles := media.CollectReferencedFiles(merged)
	if err := media.Resolve(referencedFiles, cfg.Merge.MergedDir, sourceDirs); err != nil {
		return nil, fmt.Errorf("merger: resolving media files: %w", err)
	}

	manifestPath := filepath.Join(cfg.Merge.MergedDir, "manifest.json")
	doc, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("merger: loading manifest: %w", err)
	}
	mergedDestDB := filepath.Join(cfg.Merge.MergedDir, doc.UserDataBackup.DatabaseName)
	if err := copyFile(mergedDBPath, mergedDestDB); err != nil {
		return nil, fmt.Errorf("merger: copying merged database into output directory: %w", err)
	}
	if err := manifest.Rewrite(doc, manifestPath, mergedDestDB, "jwlmerge", time.Now()); err != nil {
		return nil, fmt.Errorf("merger: rewriting manifest: %w", err)
	}

	if !cfg.Merge.SkipVerify {
		log.Info("verifying merged database")
		report := verify.Verify(merged)
		result.Verification = report
		if !report.Passed() {
			return result, fmt.Errorf("%w: %d violation(s)", ErrVerificationFailed, len(report.Violations))
		}
	}

	outputPath := filepath.Join(cfg.Merge.MergedDir, doc.Name)
	if err := archivepkg.Pack(cfg.Merge.MergedDir, outputPath); err != nil {
		return nil, fmt.Errorf("merger: packing output archive: %w", err)
	}
	result.OutputPath = outputPath
	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	log.Infof("merge complete: wrote %s in %s", outputPath, result.Duration)
	return result, nil
}

// seedMergedDir copies every .png/.json file directly inside firstSourceDir
// into mergedDir: thumbnails and the manifest template travel as-is
// from the first source before the database and media are resolved.
func seedMergedDir(firstSourceDir, mergedDir string) error {
	entries, err := os.ReadDir(firstSourceDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".png" && ext != ".json" {
			continue
		}
		if err := copyFile(filepath.Join(firstSourceDir, entry.Name()), filepath.Join(mergedDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func dumpDebugJSON(workingDir string, db *relation.Database) error {
	dir := filepath.Join(workingDir, "debug")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, table := range db.Tables {
		data, err := json.MarshalIndent(table.Rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding table %q: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644); err != nil {
			return fmt.Errorf("writing table %q: %w", name, err)
		}
	}
	return nil
}

func writeErrorLog(workingDir string, errs []error) error {
	f, err := os.OpenFile(filepath.Join(workingDir, "errors.txt"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, e := range errs {
		if _, err := fmt.Fprintln(f, e.Error()); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
