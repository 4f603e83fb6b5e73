// Package diff renders the drift between the current and desired content of
// a managed file for plan output.
package diff

import (
	"bytes"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxDiffLines    = 400
	contextLines    = 2
	truncateMessage = "... (diff truncated) ..."
)

// GenerateUnifiedDiff returns a unified diff turning before into after, or an
// empty string when both are identical. Output longer than maxDiffLines is
// truncated with a marker.
func GenerateUnifiedDiff(before, after []byte, beforeLabel, afterLabel string) string {
	if bytes.Equal(before, after) {
		return ""
	}

	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(string(before)),
		B:        splitLines(string(after)),
		FromFile: beforeLabel,
		ToFile:   afterLabel,
		Context:  contextLines,
	})
	if err != nil {
		return ""
	}

	lines := strings.SplitAfter(out, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) <= maxDiffLines {
		return out
	}
	return strings.Join(lines[:maxDiffLines], "") + truncateMessage + "\n"
}

// Stat counts the lines added and removed between before and after without
// returning any of their content.
func Stat(before, after []byte) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToChars(string(before), string(after))
	for _, d := range dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += len(splitLines(d.Text))
		case diffmatchpatch.DiffDelete:
			removed += len(splitLines(d.Text))
		}
	}
	return added, removed
}

// splitLines splits text after each newline and terminates the last line, so
// a missing final newline does not show up as a change.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if last := len(lines) - 1; lines[last] == "" {
		lines = lines[:last]
	} else {
		lines[last] += "\n"
	}
	return lines
}
