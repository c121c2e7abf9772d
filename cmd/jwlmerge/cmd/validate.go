package cmd

import (
	"context"
	"fmt"

	"github.com/jwlmerge/jwlmerge/internal/logger"
	"github.com/jwlmerge/jwlmerge/internal/merger"
	"github.com/spf13/cobra"
)

var (
	validateFiles  []string
	validateFolder string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run preflight checks without merging",
	Long: `Validate extracts every supplied archive and checks that each is
readable, has exactly one .db file and a manifest.json, and that every
source shares a compatible schema -- without writing anything.

Sources can be named individually with --file, discovered by scanning
a directory with --folder, or both.

Example:
  jwlmerge validate --folder ./backups`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringArrayVarP(&validateFiles, "file", "f", nil,
		"Path to a source .jwlibrary archive (repeat for each source)")
	validateCmd.Flags().StringVar(&validateFolder, "folder", "",
		"Directory to scan for *.jwlibrary source archives")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	archives, err := resolveArchives(validateFiles, validateFolder)
	if err != nil {
		return err
	}
	if len(archives) < 2 {
		return fmt.Errorf("at least 2 source archives are required (got %d); supply more via --file or --folder", len(archives))
	}

	if err := merger.Validate(context.Background(), cfg, archives, log); err != nil {
		fmt.Printf("preflight checks FAILED: %v\n", err)
		return err
	}

	fmt.Println("preflight checks PASSED")
	return nil
}
