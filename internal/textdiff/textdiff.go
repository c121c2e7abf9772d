// Package textdiff renders a line-level diff between two text values in
// the same "  "/"- "/"+ " prefixed format Python's
// difflib.Differ().compare() produces, reused by the identity
// reconciler's text-merge rule when two duplicate rows both carry
// non-blank free text.
//
// The matching itself is delegated to pmezard/go-difflib's
// SequenceMatcher, the same opcode-based algorithm difflib.Differ
// builds on; this package only owns turning the resulting equal/
// replace/delete/insert spans into prefixed lines. Python's Differ
// additionally emits "? " hint lines pinpointing the exact characters
// that changed within a replaced line -- that refinement is not
// reproduced here.
package textdiff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Render returns the line-diff of oldText against newText, formatted as
// Python's difflib would: unchanged lines prefixed "  ", lines only in
// oldText prefixed "- ", and lines only in newText prefixed "+ ".
func Render(oldText, newText string) string {
	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	matcher := difflib.NewMatcher(oldLines, newLines)
	var out []string
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for _, line := range oldLines[op.I1:op.I2] {
				out = append(out, "  "+line)
			}
		case 'd':
			for _, line := range oldLines[op.I1:op.I2] {
				out = append(out, "- "+line)
			}
		case 'i':
			for _, line := range newLines[op.J1:op.J2] {
				out = append(out, "+ "+line)
			}
		case 'r':
			for _, line := range oldLines[op.I1:op.I2] {
				out = append(out, "- "+line)
			}
			for _, line := range newLines[op.J1:op.J2] {
				out = append(out, "+ "+line)
			}
		}
	}
	return strings.Join(out, "\n")
}

// splitLines mirrors Python str.splitlines() closely enough for this
// use: split on "\n", with no trailing empty element for a final
// newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
