package roster

import (
	"regexp"
	"strings"
)

var anglePattern = regexp.MustCompile(`(?:"([^"]*)"|([^<>,;\n"]*))\s*<\s*([^<>\s]+)\s*>`)

// AngleParser reads address-book style "Name <email>" pairs separated by
// commas, semicolons or newlines.
type AngleParser struct{}

// Name implements Parser.
func (AngleParser) Name() string { return "angle" }

// Detect implements Parser.
func (AngleParser) Detect(text string) bool {
	return anglePattern.MatchString(text)
}

// Parse implements Parser.
func (AngleParser) Parse(text string) ([]Entry, []string) {
	matches := anglePattern.FindAllStringSubmatch(text, -1)
	entries := make([]Entry, 0, len(matches))
	for _, match := range matches {
		name := match[1]
		if name == "" {
			name = match[2]
		}
		entries = append(entries, Entry{
			Name:  strings.Trim(strings.TrimSpace(name), `'"`),
			Email: match[3],
		})
	}

	var rejected []string
	for _, line := range nonBlankLines(anglePattern.ReplaceAllString(text, "")) {
		if strings.Trim(line, " \t,;") != "" {
			rejected = append(rejected, strings.TrimSpace(line))
		}
	}
	return entries, rejected
}
