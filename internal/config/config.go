// Package config provides configuration structures and loading for jwlmerge.
package config

// Config represents the complete application configuration: nothing
// about which archives to merge (that's CLI argument territory, since
// it varies per invocation), just the ambient settings a config file or
// environment can override.
type Config struct {
	Merge   MergeConfig   `yaml:"merge" mapstructure:"merge"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// MergeConfig represents settings for the merge pipeline itself.
type MergeConfig struct {
	WorkingDir     string `yaml:"working_dir" mapstructure:"working_dir"`
	MergedDir      string `yaml:"merged_dir" mapstructure:"merged_dir"`
	Debug          bool   `yaml:"debug" mapstructure:"debug"`
	SkipVerify     bool   `yaml:"skip_verify" mapstructure:"skip_verify"`
	OffsetStride   int64  `yaml:"offset_stride" mapstructure:"offset_stride"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Merge: MergeConfig{
			WorkingDir:   "./working",
			MergedDir:    "./merged",
			Debug:        false,
			SkipVerify:   false,
			OffsetStride: 100000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// ApplyOverrides applies CLI flag overrides to the configuration. Only
// non-zero/non-empty values are applied, so an unset flag leaves the
// config-file or default value in place.
func (c *Config) ApplyOverrides(workingDir, mergedDir string, debug, skipVerify bool) {
	if workingDir != "" {
		c.Merge.WorkingDir = workingDir
	}
	if mergedDir != "" {
		c.Merge.MergedDir = mergedDir
	}
	if debug {
		c.Merge.Debug = true
	}
	if skipVerify {
		c.Merge.SkipVerify = true
	}
}
