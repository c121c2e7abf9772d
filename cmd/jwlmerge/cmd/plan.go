package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwlmerge/jwlmerge/internal/archivepkg"
	"github.com/jwlmerge/jwlmerge/internal/database"
	"github.com/jwlmerge/jwlmerge/internal/graph"
	"github.com/jwlmerge/jwlmerge/internal/mermaidascii"
	"github.com/jwlmerge/jwlmerge/internal/relation"
	"github.com/jwlmerge/jwlmerge/internal/schemascan"
	"github.com/jwlmerge/jwlmerge/internal/sqlutil"
	"github.com/spf13/cobra"
)

var (
	planFiles  []string
	planFolder string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the merge dependency graph and table row counts",
	Long: `Plan extracts every supplied archive, introspects its schema, and
prints the foreign-key dependency graph (the order tables will be
compacted and written in, and the reverse order they are cleared in) along with a per-table
row count estimate -- without merging anything.

Sources can be named individually with --file, discovered by scanning
a directory with --folder, or both.

Example:
  jwlmerge plan --folder ./backups`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringArrayVarP(&planFiles, "file", "f", nil,
		"Path to a source .jwlibrary archive (repeat for each source)")
	planCmd.Flags().StringVar(&planFolder, "folder", "",
		"Directory to scan for *.jwlibrary source archives")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	archives, err := resolveArchives(planFiles, planFolder)
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		return fmt.Errorf("at least 1 source archive is required; supply one via --file or --folder")
	}

	ctx := context.Background()
	rowCounts := make(map[string]int64)
	var schemas map[string]*relation.Schema

	for i, path := range archives {
		dir, err := archivepkg.Extract(path, cfg.Merge.WorkingDir)
		if err != nil {
			return fmt.Errorf("extracting %q: %w", path, err)
		}
		dbPath, err := archivepkg.FindDBFile(dir)
		if err != nil {
			return fmt.Errorf("locating database in %q: %w", path, err)
		}
		db, err := database.OpenReadOnly(ctx, dbPath)
		if err != nil {
			return fmt.Errorf("opening %q: %w", dbPath, err)
		}

		scanned, err := schemascan.Scan(db)
		if err != nil {
			db.Close()
			return fmt.Errorf("scanning %q: %w", dbPath, err)
		}
		if i == 0 {
			schemas = scanned.Schemas
		}
		for table := range scanned.Schemas {
			var count int64
			row := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", sqlutil.QuoteIdentifier(table)))
			if err := row.Scan(&count); err != nil {
				db.Close()
				return fmt.Errorf("counting rows in %q: %w", table, err)
			}
			rowCounts[table] += count
		}
		db.Close()
	}

	db := relation.NewDatabase()
	for _, schema := range schemas {
		db.TableOrCreate(schema)
	}
	g := graph.BuildFromSchemas(db)

	if err := printMermaidTree(g); err != nil {
		return fmt.Errorf("rendering dependency tree: %w", err)
	}
	fmt.Println()

	copyOrder, err := g.CopyOrder()
	if err != nil {
		return fmt.Errorf("computing copy order: %w", err)
	}
	deleteOrder, err := g.DeleteOrder()
	if err != nil {
		return fmt.Errorf("computing delete order: %w", err)
	}

	fmt.Printf("[Copy Order] (parents before dependents)\n")
	for i, table := range copyOrder {
		fmt.Printf("  %2d. %-30s %8d row(s)\n", i+1, table, rowCounts[table])
	}

	fmt.Printf("\n[Delete Order] (dependents before parents)\n")
	for i, table := range deleteOrder {
		fmt.Printf("  %2d. %s\n", i+1, table)
	}

	var total int64
	for _, c := range rowCounts {
		total += c
	}
	fmt.Printf("\nTotal rows across %d source(s): %d\n", len(archives), total)

	return nil
}

func printMermaidTree(g *graph.Graph) error {
	syntax := generateMermaidSyntax(g)
	output, err := mermaidascii.RenderDiagram(syntax, nil)
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

func generateMermaidSyntax(g *graph.Graph) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	for _, name := range g.AllNodes() {
		if len(g.GetChildren(name)) == 0 && len(g.GetParents(name)) == 0 {
			sb.WriteString(fmt.Sprintf("    %s\n", sanitizeNodeID(name)))
		}
	}
	for _, edge := range g.AllEdges() {
		sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n",
			sanitizeNodeID(edge.From), edge.Column, sanitizeNodeID(edge.To)))
	}
	return sb.String()
}

func sanitizeNodeID(table string) string {
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(table)
}
