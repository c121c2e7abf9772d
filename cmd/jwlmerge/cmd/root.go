package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jwlmerge/jwlmerge/internal/config"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile    string
	workDir    string
	logLevel   string
	logFormat  string
	debug      bool
	skipVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "jwlmerge",
	Short: "JW Library backup merger",
	Long: `jwlmerge combines two or more JW Library .jwlibrary backups into a
single merged backup, reconciling identities that refer to the same
real-world note/tag/location/marking across sources and renumbering
everything else so nothing collides.

Features:
  - Automatic foreign-key dependency resolution via a topological sort
  - Identity reconciliation for GUID/title-keyed domain tables
  - Referential garbage collection and primary-key compaction
  - Post-merge verification of referential integrity and key density`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Path to configuration file (optional, defaults are used otherwise)")
	rootCmd.PersistentFlags().StringVar(&workDir, "work-dir", ".",
		"Base directory under which ./working and ./merged are created")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Write per-table JSON dumps and errors.txt into the working directory")
	rootCmd.PersistentFlags().BoolVar(&skipVerify, "skip-verify", false,
		"Skip post-merge verification")
}

// GetConfigFile returns the config file path.
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings.
type CLIOverrides struct {
	WorkDir    string
	LogLevel   string
	LogFormat  string
	Debug      bool
	SkipVerify bool
}

// GetCLIOverrides returns the CLI flag override values.
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		WorkDir:    workDir,
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		Debug:      debug,
		SkipVerify: skipVerify,
	}
}

// resolveArchives combines explicit --file paths with every *.jwlibrary
// file discovered directly inside --folder (non-recursive), de-duplicating
// so the same archive named both ways is only merged once.
func resolveArchives(files []string, folder string) ([]string, error) {
	archives := append([]string(nil), files...)
	seen := make(map[string]bool, len(archives))
	for _, f := range archives {
		seen[f] = true
	}

	if folder != "" {
		matches, err := filepath.Glob(filepath.Join(folder, "*.jwlibrary"))
		if err != nil {
			return nil, fmt.Errorf("scanning --folder %q: %w", folder, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				archives = append(archives, m)
			}
		}
	}

	return archives, nil
}

// loadConfig loads the config file (if one was given via --config) or
// the defaults, then applies every CLI flag override on top, the way
// each subcommand expects to receive it.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if cfgFile := GetConfigFile(); cfgFile != "" {
		c, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	} else {
		cfg = config.DefaultConfig()
	}

	overrides := GetCLIOverrides()
	workingDir := filepath.Join(overrides.WorkDir, "working")
	mergedDir := filepath.Join(overrides.WorkDir, "merged")
	cfg.ApplyOverrides(workingDir, mergedDir, overrides.Debug, overrides.SkipVerify)
	if overrides.LogLevel != "" {
		cfg.Logging.Level = overrides.LogLevel
	}
	if overrides.LogFormat != "" {
		cfg.Logging.Format = overrides.LogFormat
	}

	return cfg, nil
}
