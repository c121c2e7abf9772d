package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if c.Merge.WorkingDir == "" {
		errors = append(errors, ValidationError{Field: "merge.working_dir", Message: "working_dir is required"})
	}
	if c.Merge.MergedDir == "" {
		errors = append(errors, ValidationError{Field: "merge.merged_dir", Message: "merged_dir is required"})
	}
	if c.Merge.OffsetStride <= 0 {
		errors = append(errors, ValidationError{Field: "merge.offset_stride", Message: "offset_stride must be positive"})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{Field: "logging.level", Message: "level must be 'debug', 'info', 'warn', or 'error'"})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{Field: "logging.format", Message: "format must be 'json' or 'text'"})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}
