package processors

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/parsers"
)

// intersegmentTable projects the combined exchange-wise report: per client,
// the uncleared balance and margin blocked on each exchange.
var intersegmentTable = parsers.TableSpec{
	HeaderMarker: "UCC",
	Fields: []parsers.FieldSpec{
		{Name: "client", Marker: "UCC", Required: true},
		{Name: "name", Marker: "Client Name"},
		{Name: "nse_balance", Marker: "NSE Uncleared", Required: true},
		{Name: "nse_margin", Marker: "NSE Margin", Required: true},
		{Name: "mcx_balance", Marker: "MCX Uncleared", Required: true},
		{Name: "mcx_margin", Marker: "MCX Margin", Required: true},
	},
}

// IntersegmentDomain plans fund movement between the two exchanges: each
// client's free cash on NSE is set against their free cash on MCX, and the
// sign of the difference says which way money should move. Free cash is the
// uncleared balance less blocked margin, floored at zero.
type IntersegmentDomain struct {
	engine *Engine
}

func NewIntersegmentDomain() *IntersegmentDomain {
	return &IntersegmentDomain{engine: NewEngine(DomainConfig{
		Name:             "intersegment",
		Direction:        LedgerMinusAllocated,
		Epsilon:          decimal.Zero,
		ExcessAction:     "M",
		ShortAction:      "N",
		SkipRule:         SkipWhenNoMarginValue,
		ProDeduction:     decimal.Zero,
		RoundingConstant: decimal.Zero,
		Output: models.OutputSpec{
			SegmentCode:        "IS",
			ClearingMemberCode: "M50012",
			TradingMemberCode:  "13181",
			UploadHeader:       "SegmentCode,CMCode,TMCode,CPCode,ClientCode,AccountType,Amount",
			UploadFilePattern:  "INTERSEG_%s.T0004",
			LimitsFilePattern:  "IS_LIMITS_%s.003",
			WorksheetName:      "Intersegment Worksheet",
		},
	})}
}

func (d *IntersegmentDomain) Name() string    { return "intersegment" }
func (d *IntersegmentDomain) Engine() *Engine { return d.engine }

func (d *IntersegmentDomain) Process(files models.FileSet, unallocatedFund decimal.Decimal) (*models.ReconResult, error) {
	reportFile, ok := files["ledger"]
	if !ok {
		return nil, missingInput("ledger")
	}
	exclusionFile, hasExclusions := files["exclusions"]

	var exclusions map[string]struct{}
	if hasExclusions {
		var err error
		exclusions, err = parsers.ParseExclusionList(exclusionFile.Filename, exclusionFile.Data)
		if err != nil {
			return nil, err
		}
	}

	grid, err := parsers.DecodeGrid(reportFile.Filename, reportFile.Data)
	if err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	rows, err := parsers.ProjectRows(grid, intersegmentTable)
	if err != nil {
		return nil, fmt.Errorf("project ledger: %w", err)
	}

	entries := make([]models.LedgerEntry, 0, len(rows))
	mcxFree := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		key := strings.TrimSpace(row["client"])
		if key == "" {
			continue
		}
		entries = append(entries, models.LedgerEntry{
			ClientKey:  key,
			ClientName: strings.TrimSpace(row["name"]),
			Balance:    freeCash(row["nse_balance"], row["nse_margin"]),
		})
		if free := freeCash(row["mcx_balance"], row["mcx_margin"]); free.Sign() > 0 {
			mcxFree[key] = free
		}
	}

	return d.engine.Reconcile(Inputs{
		Ledger:          entries,
		Allocation:      models.AllocationAggregate{Allocated: mcxFree, ProTotal: decimal.Zero},
		Exclusions:      exclusions,
		UnallocatedFund: unallocatedFund,
	}), nil
}

func freeCash(balanceCell, marginCell string) decimal.Decimal {
	free := parsers.LedgerBalance(balanceCell).Sub(parsers.ParseAmount(marginCell))
	if free.Sign() < 0 {
		return decimal.Zero
	}
	return free
}
