package parsers

import (
	"regexp"
	"strings"

	"github.com/username/fundrecon/backend/src/models"
)

// headerScanWindow is how many leading rows are searched for the header row.
// Risk-ledger exports routinely carry titles, report dates and blank rows
// before the actual column headers.
const headerScanWindow = 20

var (
	htmlFragmentRe = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// FieldSpec maps one target field to a header marker substring.
type FieldSpec struct {
	Name     string // key under which the cell lands in the RawRow
	Marker   string // substring matched against the normalized header text
	Required bool
}

// TableSpec describes how to locate and project one tabular input.
type TableSpec struct {
	// HeaderMarker identifies the header row: the first scanned row containing
	// a cell whose normalized text includes this substring.
	HeaderMarker string
	Fields       []FieldSpec
}

// normalizeHeader lower-cases a header cell, strips stray HTML fragments some
// exports carry, and collapses runs of whitespace.
func normalizeHeader(s string) string {
	s = htmlFragmentRe.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ProjectRows locates the header row within the scan window, resolves each
// field's column by marker substring, and projects every subsequent non-empty
// row into a RawRow. Rows shorter than the highest mapped column are skipped.
func ProjectRows(grid [][]string, spec TableSpec) ([]models.RawRow, error) {
	marker := normalizeHeader(spec.HeaderMarker)

	headerIdx := -1
	scanned := len(grid)
	if scanned > headerScanWindow {
		scanned = headerScanWindow
	}
	for i := 0; i < scanned; i++ {
		for _, cell := range grid[i] {
			if strings.Contains(normalizeHeader(cell), marker) {
				headerIdx = i
				break
			}
		}
		if headerIdx >= 0 {
			break
		}
	}
	if headerIdx < 0 {
		return nil, headerNotFound(spec.HeaderMarker, scanned)
	}

	header := grid[headerIdx]
	columns := make(map[string]int, len(spec.Fields))
	maxIdx := 0
	for _, field := range spec.Fields {
		fieldMarker := normalizeHeader(field.Marker)
		found := -1
		for col, cell := range header {
			if strings.Contains(normalizeHeader(cell), fieldMarker) {
				found = col
				break
			}
		}
		if found < 0 {
			if field.Required {
				return nil, missingColumn(field.Name, field.Marker)
			}
			continue
		}
		columns[field.Name] = found
		if found > maxIdx {
			maxIdx = found
		}
	}

	var rows []models.RawRow
	for _, gridRow := range grid[headerIdx+1:] {
		if len(gridRow) <= maxIdx {
			continue
		}
		row := make(models.RawRow, len(columns))
		empty := true
		for name, col := range columns {
			value := strings.TrimSpace(gridRow[col])
			row[name] = value
			if value != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
