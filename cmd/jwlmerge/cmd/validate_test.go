package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCommandStructure(t *testing.T) {
	assert.NotNil(t, validateCmd)
	assert.Equal(t, "validate", validateCmd.Use)
	assert.NotEmpty(t, validateCmd.Short)
	assert.NotNil(t, validateCmd.RunE)
}

func TestRunValidateFailsOnMissingArchives(t *testing.T) {
	originalFiles := validateFiles
	originalWorkDir := workDir
	defer func() {
		validateFiles = originalFiles
		workDir = originalWorkDir
	}()

	workDir = t.TempDir()
	validateFiles = []string{"does-not-exist-1.jwlibrary", "does-not-exist-2.jwlibrary"}

	err := runValidate(validateCmd, []string{})
	assert.Error(t, err)
}

func TestValidateIsAddedToRoot(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "validate" {
			found = true
			break
		}
	}
	assert.True(t, found, "validate command should be added to root command")
}
