// Package media resolves the file-path columns a merged database still
// refers to (IndependentMedia.FilePath, PlaylistItem.ThumbnailFilePath)
// against every source's extraction directory, then copies whichever
// files aren't already sitting in the merged output directory.
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jwlmerge/jwlmerge/internal/relation"
)

// Columns names the two file-path columns that need resolving against
// source media directories, kept as a slice so callers (and tests)
// don't need to know the exact table each one lives on.
type Column struct {
	Table  string
	Column string
}

var Columns = []Column{
	{Table: "IndependentMedia", Column: "FilePath"},
	{Table: "PlaylistItem", Column: "ThumbnailFilePath"},
}

// CollectReferencedFiles returns every non-blank value of the resolved
// columns across db, the set of file names the merged archive must
// still contain.
func CollectReferencedFiles(db *relation.Database) []string {
	var names []string
	seen := make(map[string]bool)
	for _, c := range Columns {
		table, ok := db.Tables[c.Table]
		if !ok {
			continue
		}
		for _, row := range table.Rows {
			v, ok := row[c.Column].(string)
			if !ok || v == "" || seen[v] {
				continue
			}
			seen[v] = true
			names = append(names, v)
		}
	}
	return names
}

// Resolve copies every file in names into mergedDir, searching
// sourceDirs in order for each one not already present in mergedDir.
// The search is recursive because media can be nested under a source's
// own subdirectories.
func Resolve(names []string, mergedDir string, sourceDirs []string) error {
	for _, name := range names {
		dest := filepath.Join(mergedDir, filepath.Base(name))
		if _, err := os.Stat(dest); err == nil {
			continue // already present, e.g. copied from the first source's base files
		}

		found, err := locate(name, sourceDirs)
		if err != nil {
			return err
		}
		if found == "" {
			return fmt.Errorf("media: %q not found in any source directory", name)
		}
		if err := copyFile(found, dest); err != nil {
			return fmt.Errorf("media: copying %q: %w", name, err)
		}
	}
	return nil
}

func locate(name string, sourceDirs []string) (string, error) {
	base := filepath.Base(name)
	for _, dir := range sourceDirs {
		matches, err := globRecursive(dir, base)
		if err != nil {
			return "", fmt.Errorf("media: searching %q for %q: %w", dir, base, err)
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return "", nil
}

// globRecursive walks root looking for a file named base, the Go
// equivalent of the original's glob.glob(root + "/**/" + name, recursive=True).
func globRecursive(root, base string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries rather than aborting the whole search
		}
		if !d.IsDir() && d.Name() == base {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
