package artifact

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/raphi011/skillsync/internal/storage"
)

// MarkerPrefix starts the timestamp line in the root document.
const MarkerPrefix = "**Last updated:**"

var (
	markerRe      = regexp.MustCompile(`(?m)^\*\*Last updated:\*\*[^\r\n]*`)
	headingRe     = regexp.MustCompile(`(?m)^#{1,6}[ \t][^\r\n]*`)
	frontmatterRe = regexp.MustCompile(`\A---[ \t]*\r?\n(?:(?s:.*?)\r?\n)?---[ \t]*(?:\r?\n|\z)`)
)

// MarkerLine returns the marker for date.
func MarkerLine(date string) string {
	return MarkerPrefix + " " + date
}

// SetMarker replaces the first marker line in doc with one for date. Without
// a marker, one is inserted after the first heading, or at the top when the
// document has no heading. A leading YAML frontmatter block is left alone.
func SetMarker(doc, date string) string {
	var front string
	if loc := frontmatterRe.FindStringIndex(doc); loc != nil {
		front, doc = doc[:loc[1]], doc[loc[1]:]
	}
	return front + setMarker(doc, date)
}

func setMarker(doc, date string) string {
	line := MarkerLine(date)
	nl := "\n"
	if strings.Contains(doc, "\r\n") {
		nl = "\r\n"
	}

	if loc := markerRe.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + line + doc[loc[1]:]
	}

	if loc := headingRe.FindStringIndex(doc); loc != nil {
		rest := strings.TrimLeft(doc[loc[1]:], "\r\n")
		head := doc[:loc[1]] + nl + nl + line + nl
		if rest == "" {
			return head
		}
		return head + nl + rest
	}

	if doc == "" {
		return line + nl
	}
	return line + nl + nl + doc
}

// UpdateMarkerTimestamp rewrites the marker in the root document with the
// current date. A missing root document is reported as an error satisfying
// errors.Is(err, fs.ErrNotExist).
func (g *FileGenerator) UpdateMarkerTimestamp() error {
	data, err := os.ReadFile(g.rootDoc)
	if err != nil {
		return fmt.Errorf("read root document: %w", err)
	}

	info, err := os.Stat(g.rootDoc)
	if err != nil {
		return fmt.Errorf("stat root document: %w", err)
	}

	updated := SetMarker(string(data), g.date())
	if updated == string(data) {
		return nil
	}
	if err := storage.WriteFileAtomic(g.rootDoc, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write root document: %w", err)
	}
	return nil
}
