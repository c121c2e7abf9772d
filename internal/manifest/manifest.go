// Package manifest rewrites a merged archive's manifest.json: refresh
// the creation timestamp, rename the backup, and replace userDataBackup
// with the merged database's own hash and metadata.
package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// usEastern is loaded once; JW Library stamps creationDate in
// US/Eastern regardless of the host machine's local timezone, a
// manifest convention this preserves rather than "fixes".
var usEastern = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Falls back to a fixed -05:00 offset if the build has no tzdata
		// bundled; US/Eastern's DST transitions are cosmetic here since
		// only the timestamp format matters to JW Library, not the zone.
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// UserDataBackup is the manifest.json "userDataBackup" object the
// rewrite replaces wholesale after a merge.
type UserDataBackup struct {
	LastModifiedDate string `json:"lastModifiedDate"`
	Hash             string `json:"hash"`
	DatabaseName     string `json:"databaseName"`
	SchemaVersion    int    `json:"schemaVersion"`
	DeviceName       string `json:"deviceName"`
}

// Document is the subset of manifest.json fields this tool reads or
// writes; unknown fields round-trip unchanged via the Extra map.
type Document struct {
	Name           string                 `json:"name"`
	CreationDate   string                 `json:"creationDate"`
	UserDataBackup UserDataBackup         `json:"userDataBackup"`
	Extra          map[string]interface{} `json:"-"`
}

// Load reads and parses manifest.json at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: reading %q: %w", path, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("manifest: parsing %q: %w", path, err)
	}

	doc := &Document{Extra: raw}
	if name, ok := raw["name"].(string); ok {
		doc.Name = name
	}
	if cd, ok := raw["creationDate"].(string); ok {
		doc.CreationDate = cd
	}
	if udb, ok := raw["userDataBackup"].(map[string]interface{}); ok {
		if v, ok := udb["databaseName"].(string); ok {
			doc.UserDataBackup.DatabaseName = v
		}
		if v, ok := udb["schemaVersion"].(float64); ok {
			doc.UserDataBackup.SchemaVersion = int(v)
		}
	}
	return doc, nil
}

// Rewrite updates doc's name, creationDate, and userDataBackup to
// describe the freshly-written mergedDBPath, then writes the result
// back to path as indented JSON (matching json.dump(..., indent=2)).
// deviceName names the merging tool in the manifest's deviceName field.
func Rewrite(doc *Document, path, mergedDBPath, deviceName string, now time.Time) error {
	formatted := now.In(usEastern).Format("2006-01-02T15:04:05-0700")
	hash, err := sha256File(mergedDBPath)
	if err != nil {
		return fmt.Errorf("manifest: hashing %q: %w", mergedDBPath, err)
	}

	name := fmt.Sprintf("UserdataBackup_%s_%s.jwlibrary", now.Format("2006-01-02-150405"), deviceName)

	doc.CreationDate = formatted
	doc.Name = name
	doc.UserDataBackup = UserDataBackup{
		LastModifiedDate: formatted,
		Hash:             hash,
		DatabaseName:     doc.UserDataBackup.DatabaseName,
		SchemaVersion:    doc.UserDataBackup.SchemaVersion,
		DeviceName:       deviceName,
	}

	doc.Extra["name"] = doc.Name
	doc.Extra["creationDate"] = doc.CreationDate
	doc.Extra["userDataBackup"] = doc.UserDataBackup

	out, err := json.MarshalIndent(doc.Extra, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: encoding %q: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("manifest: writing %q: %w", path, err)
	}
	return nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
