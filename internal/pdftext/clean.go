package pdftext

import (
	"regexp"
	"strings"
)

var spaceRun = regexp.MustCompile(`[ \t\x{00A0}]+`)

// CleanText collapses runs of spaces inside lines, trims every line and
// squeezes consecutive blank lines into one. Paragraph breaks survive.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line == "" {
			if len(out) > 0 {
				blank = true
			}
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
