package roster

import (
	"encoding/csv"
	"io"
	"strings"
)

var (
	crsidHeaders    = []string{"crsid", "crs id", "user id"}
	emailHeaders    = []string{"email", "email address", "e-mail"}
	fullNameHeaders = []string{"name", "full name", "display name", "student name"}
	surnameHeaders  = []string{"surname", "last name", "family name"}
	forenameHeaders = []string{"forename", "forenames", "first name", "given name", "preferred name"}
)

// CRSidTableParser reads tab or comma separated directory exports whose
// header row names a CRSid column. Rows above the header are ignored.
type CRSidTableParser struct{}

// Name implements Parser.
func (CRSidTableParser) Name() string { return "crsid-table" }

// Detect implements Parser.
func (p CRSidTableParser) Detect(text string) bool {
	_, _, ok := p.header(text)
	return ok
}

// Parse implements Parser.
func (p CRSidTableParser) Parse(text string) ([]Entry, []string) {
	lines, delimiter, ok := p.header(text)
	if !ok {
		return nil, nil
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil
	}
	columns := indexColumns(header)

	var (
		entries  []Entry
		rejected []string
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rejected = append(rejected, err.Error())
			continue
		}

		entry, ok := columns.entry(record)
		if !ok {
			rejected = append(rejected, strings.Join(record, string(delimiter)))
			continue
		}
		entries = append(entries, entry)
	}

	return entries, rejected
}

// header returns the lines from the header row onwards and the delimiter used.
func (CRSidTableParser) header(text string) ([]string, rune, bool) {
	lines := nonBlankLines(text)
	for i, line := range lines {
		for _, delimiter := range []rune{'\t', ','} {
			if !strings.ContainsRune(line, delimiter) {
				continue
			}
			cells := strings.Split(line, string(delimiter))
			if indexOf(cells, crsidHeaders) >= 0 {
				return lines[i:], delimiter, true
			}
		}
	}
	return nil, 0, false
}

type columnIndex struct {
	crsid, email, fullName, surname, forename int
}

func indexColumns(header []string) columnIndex {
	return columnIndex{
		crsid:    indexOf(header, crsidHeaders),
		email:    indexOf(header, emailHeaders),
		fullName: indexOf(header, fullNameHeaders),
		surname:  indexOf(header, surnameHeaders),
		forename: indexOf(header, forenameHeaders),
	}
}

func (c columnIndex) entry(record []string) (Entry, bool) {
	email := cell(record, c.email)
	if email == "" {
		email = cell(record, c.crsid)
	}
	if email == "" {
		return Entry{}, false
	}

	name := cell(record, c.fullName)
	if name == "" {
		name = strings.TrimSpace(cell(record, c.forename) + " " + cell(record, c.surname))
	}
	if name == "" {
		name = cell(record, c.crsid)
	}

	return Entry{Name: name, Email: email}, true
}

func cell(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

func indexOf(cells []string, names []string) int {
	for i, value := range cells {
		normalised := strings.ToLower(strings.Trim(strings.TrimSpace(value), `"`))
		for _, name := range names {
			if normalised == name {
				return i
			}
		}
	}
	return -1
}
