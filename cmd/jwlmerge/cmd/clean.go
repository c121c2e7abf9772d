package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the working and merged output directories",
	Long: `Clean removes ./working and ./merged (or their --work-dir-relative
equivalents) entirely. It only ever deletes jwlmerge's own scratch
output -- never a source archive passed with --file or --folder.

Example:
  jwlmerge clean --work-dir ./work`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	workingDir := filepath.Join(workDir, "working")
	mergedDir := filepath.Join(workDir, "merged")

	for _, dir := range []string{workingDir, mergedDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %q: %w", dir, err)
		}
		fmt.Printf("removed %s\n", dir)
	}

	return nil
}
