// Package roster turns pasted or uploaded student lists into name/email pairs.
//
// Three formats are recognised and probed in a fixed order: "Name <email>"
// pairs, CRSid tables exported from the university directory, and plain
// comma separated lines.
package roster

import (
	"errors"
	"strings"
)

// DefaultDomain is appended to addresses given as bare CRSids.
const DefaultDomain = "cam.ac.uk"

// ErrUnrecognisedFormat is returned when no parser accepts the text.
var ErrUnrecognisedFormat = errors.New("roster format not recognised")

// Entry is one student parsed from a roster.
type Entry struct {
	Name  string
	Email string
}

// Parser is one roster format.
type Parser interface {
	// Name identifies the format in responses and logs.
	Name() string
	// Detect reports whether text looks like this format.
	Detect(text string) bool
	// Parse extracts entries and returns the lines it had to reject.
	Parse(text string) ([]Entry, []string)
}

// Result is the outcome of parsing a roster.
type Result struct {
	Format   string
	Entries  []Entry
	Rejected []string
}

// DefaultParsers lists the supported formats in probe order.
func DefaultParsers() []Parser {
	return []Parser{AngleParser{}, CRSidTableParser{}, CommaParser{}}
}

// Parse runs the first of parsers whose Detect accepts text. With no parsers
// given, DefaultParsers is used.
func Parse(text string, parsers ...Parser) (Result, error) {
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}

	text = normaliseNewlines(text)
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrUnrecognisedFormat
	}

	for _, parser := range parsers {
		if !parser.Detect(text) {
			continue
		}
		entries, rejected := parser.Parse(text)
		for i := range entries {
			entries[i].Name = strings.TrimSpace(entries[i].Name)
			entries[i].Email = NormaliseEmail(entries[i].Email)
		}
		return Result{Format: parser.Name(), Entries: entries, Rejected: rejected}, nil
	}

	return Result{}, ErrUnrecognisedFormat
}

// NormaliseEmail trims and lowercases email, appending DefaultDomain when it
// has no "@".
func NormaliseEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	if !strings.Contains(email, "@") {
		email += "@" + DefaultDomain
	}
	return email
}

func normaliseNewlines(text string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
}

func nonBlankLines(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
