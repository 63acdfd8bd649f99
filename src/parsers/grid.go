package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\xef\xbb\xbf"

// maxXLSRows caps how many rows are pulled out of a legacy .xls workbook.
const maxXLSRows = 65536

// DecodeGrid turns an uploaded file into a 2-D grid of cell strings. The
// format is chosen by extension first and content second: .xlsx via excelize,
// legacy .xls via the OLE2 reader, everything else as delimited text with the
// delimiter auto-detected from the first line.
func DecodeGrid(filename string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return decodeXLSX(data)
	case ".xls":
		return decodeXLS(data)
	default:
		// Some risk systems export spreadsheets with a .csv/.txt name and some
		// export delimited text with an .xls name; sniff before giving up.
		if bytes.HasPrefix(data, []byte("PK")) {
			return decodeXLSX(data)
		}
		return decodeDelimited(data)
	}
}

func decodeXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnsupportedFile)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func decodeXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	rows := wb.ReadAllCells(maxXLSRows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: xls workbook is empty", ErrUnsupportedFile)
	}
	return rows, nil
}

// decodeDelimited reads comma- or tab-separated text. The delimiter is picked
// from whichever occurs more in the first line; a UTF-8 BOM is stripped.
func decodeDelimited(data []byte) ([][]string, error) {
	text := strings.TrimPrefix(string(data), utf8BOM)

	firstLine := text
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		firstLine = text[:idx]
	}
	delimiter := ','
	if strings.Count(firstLine, "\t") > strings.Count(firstLine, ",") {
		delimiter = '\t'
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited text: %w", err)
	}
	return rows, nil
}
