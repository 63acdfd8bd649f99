package processors

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/parsers"
)

// crossCheckTolerance is how far the ledger balance may drift from the
// report's own total column before the row is flagged. One rupee absorbs the
// rounding the terminal applies when it prints the total.
var crossCheckTolerance = decimal.NewFromInt(1)

// LedgerSpec describes how one risk-ledger export maps onto ledger entries.
// BalanceFields are summed after the credit-negative sign flip; ReportedField,
// when present and found in the file, is compared against the sum and any
// disagreement beyond the tolerance becomes a non-fatal warning.
type LedgerSpec struct {
	Table         parsers.TableSpec
	BalanceFields []string
	ReportedField string
}

// parseLedger decodes and projects a ledger file into entries, in file order.
// Blank client keys are dropped here; duplicate keys survive so the join can
// apply its first-seen rule.
func parseLedger(file models.InputFile, spec LedgerSpec) ([]models.LedgerEntry, []string, error) {
	grid, err := parsers.DecodeGrid(file.Filename, file.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", file.Field, err)
	}
	rows, err := parsers.ProjectRows(grid, spec.Table)
	if err != nil {
		return nil, nil, fmt.Errorf("project %s: %w", file.Field, err)
	}

	entries := make([]models.LedgerEntry, 0, len(rows))
	var warnings []string
	for _, row := range rows {
		key := strings.TrimSpace(row["client"])
		if key == "" {
			continue
		}
		balance := decimal.Zero
		for _, field := range spec.BalanceFields {
			balance = balance.Add(parsers.LedgerBalance(row[field]))
		}
		if spec.ReportedField != "" {
			if cell, ok := row[spec.ReportedField]; ok && strings.TrimSpace(cell) != "" {
				reported := parsers.LedgerBalance(cell)
				if balance.Sub(reported).Abs().Cmp(crossCheckTolerance) > 0 {
					warnings = append(warnings, fmt.Sprintf(
						"client %s: ledger balance %s disagrees with reported total %s",
						key, balance.String(), reported.String()))
				}
			}
		}
		entries = append(entries, models.LedgerEntry{
			ClientKey:  key,
			ClientName: strings.TrimSpace(row["name"]),
			Balance:    balance,
		})
	}
	return entries, warnings, nil
}
