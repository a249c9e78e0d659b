package roster

import "strings"

// CommaParser reads one student per line as "name,email" or
// "surname,firstname,email".
type CommaParser struct{}

// Name implements Parser.
func (CommaParser) Name() string { return "comma" }

// Detect implements Parser.
func (CommaParser) Detect(text string) bool {
	for _, line := range nonBlankLines(text) {
		if strings.Contains(line, ",") {
			return true
		}
	}
	return false
}

// Parse implements Parser.
func (CommaParser) Parse(text string) ([]Entry, []string) {
	var (
		entries  []Entry
		rejected []string
	)

	for _, line := range nonBlankLines(text) {
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		var entry Entry
		switch len(fields) {
		case 2:
			entry = Entry{Name: fields[0], Email: fields[1]}
		case 3:
			entry = Entry{Name: fields[1] + " " + fields[0], Email: fields[2]}
		default:
			rejected = append(rejected, strings.TrimSpace(line))
			continue
		}

		if entry.Email == "" {
			rejected = append(rejected, strings.TrimSpace(line))
			continue
		}
		entries = append(entries, entry)
	}

	return entries, rejected
}
