package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ParseImport reads installs from raw. CSV input (csvFile, or a header row
// naming "name" and "url") is read as name,url[,tags] with the header
// skipped; anything else is one base URL per line. Names are left empty when
// the source has none.
func ParseImport(raw string, csvFile bool) ([]Discourse, error) {
	if csvFile || LooksLikeCSV(raw) {
		return parseImportCSV(raw)
	}

	var installs []Discourse
	for _, line := range strings.Split(raw, "\n") {
		if url := strings.TrimSpace(line); url != "" {
			installs = append(installs, Discourse{BaseURL: url})
		}
	}
	return installs, nil
}

func parseImportCSV(raw string) ([]Discourse, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	var installs []Discourse
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return installs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		field := func(i int) string {
			if i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}
		if field(1) == "" {
			continue
		}
		installs = append(installs, Discourse{
			Name:    field(0),
			BaseURL: field(1),
			Tags:    ParseTags(field(2)),
		})
	}
}

// LooksLikeCSV reports whether the first non-blank line is a header naming
// both a name and a url column.
func LooksLikeCSV(raw string) bool {
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lower := strings.ToLower(line)
		return strings.Contains(lower, "name") && strings.Contains(lower, "url") && strings.Contains(line, ",")
	}
	return false
}

// Slugify lowercases input and joins its ASCII alphanumeric runs with "-".
func Slugify(input string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(input) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}

// Tidy sorts the installs by name.
func (c *Config) Tidy() {
	sort.SliceStable(c.Discourse, func(i, j int) bool {
		a, b := strings.ToLower(c.Discourse[i].Name), strings.ToLower(c.Discourse[j].Name)
		if a == b {
			return c.Discourse[i].Name < c.Discourse[j].Name
		}
		return a < b
	})
}
