package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/security/validation"
)

var worksheetHeaders = []string{
	"Client Code",
	"Client Name",
	"Ledger Amount",
	"Allocated Amount",
	"Difference",
	"Action",
	"Margin",
	"Retention Threshold",
	"Margin Shortfall",
	"Cash Component",
	"Collateral Component",
	"Source",
}

// BuildWorksheet renders the human-review spreadsheet for a result. Client
// keys and names pass through formula-injection sanitization since the sheet
// is opened in desktop Excel by the back office.
func BuildWorksheet(res *models.ReconResult, spec models.OutputSpec, now time.Time) (string, []byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := spec.WorksheetName
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", nil, err
	}

	for col, header := range worksheetHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return "", nil, err
		}
	}

	for i := range res.Records {
		rec := &res.Records[i]
		margin := ""
		if rec.HasMargin {
			margin = rec.MarginAmount.String()
		}
		values := []interface{}{
			validation.SanitizeForFormulaInjection(rec.ClientKey),
			validation.SanitizeForFormulaInjection(rec.ClientName),
			rec.LedgerAmount.InexactFloat64(),
			rec.AllocatedAmount.InexactFloat64(),
			rec.Difference.InexactFloat64(),
			rec.Action,
			margin,
			rec.Threshold.InexactFloat64(),
			rec.Shortfall.InexactFloat64(),
			rec.CashComponent.InexactFloat64(),
			rec.CollateralComponent.InexactFloat64(),
			recordSource(rec),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return "", nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return "", nil, err
			}
		}
	}

	footer := fmt.Sprintf("%d", len(res.Records)+3)
	summary := map[string]interface{}{
		"A" + footer: "Proprietary Total",
		"B" + footer: res.Pro.ProTotal.InexactFloat64(),
		"D" + footer: "Adjustment",
		"E" + footer: res.Pro.Adjustment.InexactFloat64(),
		"G" + footer: "Net Difference",
		"H" + footer: res.NetDifference.InexactFloat64(),
	}
	for cell, value := range summary {
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return "", nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", nil, err
	}
	name := fmt.Sprintf("%s_%s.xlsx", res.Domain, fileDate(spec, now))
	return name, buf.Bytes(), nil
}

func recordSource(rec *models.ReconRecord) string {
	switch {
	case rec.Overridden:
		return "override"
	case rec.Synthesized:
		return "allocation-only"
	default:
		return "ledger"
	}
}
