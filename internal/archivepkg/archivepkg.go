// Package archivepkg extracts and packs .jwlibrary archives (plain zip
// files) using the standard library's archive/zip -- its stdlib API
// already covers everything this package needs (streamed extraction,
// Deflate writer), so reaching past it would add a dependency with
// nothing left for it to do. Named archivepkg, not archive, to avoid
// colliding with the CLI's own "archive" vocabulary.
package archivepkg

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extract unzips src into a fresh directory named after src's base name
// (without extension) under destDir, and returns the path to that
// directory.
func Extract(src, destDir string) (string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return "", fmt.Errorf("archivepkg: opening %q: %w", src, err)
	}
	defer r.Close()

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	targetDir := filepath.Join(destDir, base)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("archivepkg: creating %q: %w", targetDir, err)
	}

	for _, f := range r.File {
		if err := extractOne(f, targetDir); err != nil {
			return "", fmt.Errorf("archivepkg: extracting %q: %w", f.Name, err)
		}
	}
	return targetDir, nil
}

func extractOne(f *zip.File, targetDir string) error {
	path := filepath.Join(targetDir, f.Name)
	// Guard against zip-slip: a crafted archive entry must never escape
	// targetDir via ../ path segments.
	if !strings.HasPrefix(path, filepath.Clean(targetDir)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal file path %q escapes extraction directory", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(path, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// Pack zips every file directly inside srcDir (non-recursive, matching
// a .jwlibrary's flat layout: manifest.json, the .db file, and any
// media) into a new archive at destPath.
func Pack(srcDir, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("archivepkg: creating %q: %w", destPath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("archivepkg: reading %q: %w", srcDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := addFile(zw, filepath.Join(srcDir, entry.Name()), entry.Name()); err != nil {
			return fmt.Errorf("archivepkg: adding %q: %w", entry.Name(), err)
		}
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// FindDBFile returns the single .db file inside dir.
func FindDBFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.db"))
	if err != nil {
		return "", fmt.Errorf("archivepkg: globbing %q: %w", dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("archivepkg: no .db file found in %q", dir)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("archivepkg: expected exactly one .db file in %q, found %d", dir, len(matches))
	}
	return matches[0], nil
}
