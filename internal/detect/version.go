package detect

import (
	"bufio"
	"regexp"
	"strings"
)

// versionScanLines is how far into the authoritative document headings are
// searched.
const versionScanLines = 50

// versionPatterns are the accepted heading conventions, highest priority
// first. The first pattern that matches any scanned line wins.
var versionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^##\s+\[(\d+\.\d+\.\d+)\]`),             // ## [1.2.3]
	regexp.MustCompile(`^##\s+v?(\d+\.\d+\.\d+)\b`),             // ## v1.2.3, ## 1.2.3
	regexp.MustCompile(`^#{1,2}\s+Version\s+(\d+\.\d+\.\d+)\b`), // # Version 1.2.3
	regexp.MustCompile(`^(\d+\.\d+\.\d+)$`),                     // bare 1.2.3
}

// ExtractVersion returns the version token from the leading lines of a
// changelog-style document, or "" if none of the conventions match.
func ExtractVersion(text string) string {
	lines := leadingLines(text, versionScanLines)
	for _, re := range versionPatterns {
		for _, line := range lines {
			if m := re.FindStringSubmatch(line); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

func leadingLines(text string, n int) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() && len(lines) < n {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	return lines
}
