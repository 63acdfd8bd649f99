package parsers

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
)

// MRG fixed-format layout: data rows carry record-type "30" in the first
// field, the client code in field 3 and the margin figure in field 12.
const (
	mrgDataRowType   = "30"
	mrgClientIdx     = 3
	mrgMarginIdx     = 12
	mrgMinFieldCount = 13
)

// ParseMRGMargins reads the exchange MRG margin report. Non-"30" rows are
// control records and are ignored; repeated client codes keep the last figure,
// matching how the exchange emits corrections later in the same file.
func ParseMRGMargins(data []byte) (*models.MarginSet, error) {
	grid, err := decodeDelimited(data)
	if err != nil {
		return nil, err
	}

	set := &models.MarginSet{Amounts: make(map[string]decimal.Decimal)}
	for _, row := range grid {
		if len(row) < mrgMinFieldCount {
			continue
		}
		if strings.TrimSpace(row[0]) != mrgDataRowType {
			continue
		}
		key := strings.TrimSpace(row[mrgClientIdx])
		if key == "" {
			continue
		}
		set.Amounts[key] = ParseAmount(row[mrgMarginIdx])
	}
	return set, nil
}

// SearchResultsSpec locates the margin columns of the "SearchResults" margin
// workbook exported by the risk terminal.
var SearchResultsSpec = TableSpec{
	HeaderMarker: "Client Code",
	Fields: []FieldSpec{
		{Name: "client", Marker: "Client Code", Required: true},
		{Name: "margin", Marker: "Total MU (Rs)", Required: true},
	},
}

// ParseSearchResultsMargins reads the spreadsheet flavor of the margin feed.
func ParseSearchResultsMargins(filename string, data []byte) (*models.MarginSet, error) {
	grid, err := DecodeGrid(filename, data)
	if err != nil {
		return nil, err
	}
	rows, err := ProjectRows(grid, SearchResultsSpec)
	if err != nil {
		return nil, err
	}

	set := &models.MarginSet{Amounts: make(map[string]decimal.Decimal, len(rows))}
	for _, row := range rows {
		key := strings.TrimSpace(row["client"])
		if key == "" {
			continue
		}
		set.Amounts[key] = ParseAmount(row["margin"])
	}
	return set, nil
}
