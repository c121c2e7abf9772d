package cmd

import (
	"fmt"
	"os"

	"github.com/jwlmerge/jwlmerge/internal/database"
	"github.com/jwlmerge/jwlmerge/internal/logger"
	"github.com/jwlmerge/jwlmerge/internal/merger"
	"github.com/spf13/cobra"
)

var (
	mergeFiles  []string
	mergeFolder string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge two or more JW Library backups into one",
	Long: `Merge extracts every supplied .jwlibrary archive, reconciles identities
that refer to the same real-world note/tag/location/marking across
sources, renumbers everything else so nothing collides, rebuilds a
single merged database, and packs it back into a .jwlibrary archive.

Sources can be named individually with --file, discovered by scanning
a directory with --folder, or both -- the two lists are combined.

Example:
  jwlmerge merge --folder ./backups --file extra.jwlibrary`,
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringArrayVarP(&mergeFiles, "file", "f", nil,
		"Path to a source .jwlibrary archive (repeat for each source)")
	mergeCmd.Flags().StringVar(&mergeFolder, "folder", "",
		"Directory to scan for *.jwlibrary source archives")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	archives, err := resolveArchives(mergeFiles, mergeFolder)
	if err != nil {
		return err
	}
	if len(archives) < 2 {
		return fmt.Errorf("at least 2 source archives are required (got %d); supply more via --file or --folder", len(archives))
	}

	log.Infow("starting merge", "sources", len(archives), "work-dir", workDir)

	ctx := database.SetupSignalHandlerWithCallback(func(sig os.Signal) {
		log.Warnw("received shutdown signal, cancelling merge", "signal", sig)
	})

	result, err := merger.Merge(ctx, cfg, archives, log)
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	fmt.Printf("\n=== Merge Complete ===\n")
	fmt.Printf("Output: %s\n", result.OutputPath)
	fmt.Printf("Duration: %s\n", result.Duration)
	fmt.Printf("Sources merged: %d\n", result.SourceCount)
	fmt.Printf("Tables written: %d\n", len(result.TableStats))
	if result.Verification != nil {
		fmt.Printf("Verification: %d violation(s)\n", len(result.Verification.Violations))
	}
	if len(result.Errors) > 0 {
		fmt.Printf("\nNon-fatal row errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %v\n", e)
		}
	}

	return nil
}
