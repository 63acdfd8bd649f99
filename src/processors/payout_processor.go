package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/parsers"
)

var payoutLedgerSpec = LedgerSpec{
	Table: parsers.TableSpec{
		HeaderMarker: "UCC",
		Fields: []parsers.FieldSpec{
			{Name: "client", Marker: "UCC", Required: true},
			{Name: "name", Marker: "Client Name"},
			{Name: "balance", Marker: "Total", Required: true},
		},
	},
	BalanceFields: []string{"balance"},
}

// PayoutDomain decides per-client payouts: the risk-ledger balance is set
// against the exchange MRG margin requirement, and whatever the client holds
// above margin is releasable. The margin figures double as the allocation
// side of the join.
type PayoutDomain struct {
	engine *Engine
}

func NewPayoutDomain() *PayoutDomain {
	return &PayoutDomain{engine: NewEngine(DomainConfig{
		Name:             "payout",
		Direction:        LedgerMinusAllocated,
		Epsilon:          decimal.Zero,
		ExcessAction:     "P",
		ShortAction:      "R",
		SkipRule:         SkipWhenMarginAbsent,
		ProDeduction:     decimal.Zero,
		RoundingConstant: decimal.Zero,
		ComputeThreshold: true,
		Output: models.OutputSpec{
			SegmentCode:        "CM",
			ClearingMemberCode: "M50012",
			TradingMemberCode:  "13181",
			UploadHeader:       "SegmentCode,CMCode,TMCode,CPCode,ClientCode,AccountType,Amount",
			UploadFilePattern:  "PAYOUT_%s.T0004",
			LimitsFilePattern:  "RMS_LIMITS_%s.003",
			WorksheetName:      "Payout Worksheet",
		},
	})}
}

func (d *PayoutDomain) Name() string    { return "payout" }
func (d *PayoutDomain) Engine() *Engine { return d.engine }

func (d *PayoutDomain) Process(files models.FileSet, unallocatedFund decimal.Decimal) (*models.ReconResult, error) {
	ledgerFile, ok := files["ledger"]
	if !ok {
		return nil, missingInput("ledger")
	}
	marginFile, ok := files["margin"]
	if !ok {
		return nil, missingInput("margin")
	}

	var (
		entries  []models.LedgerEntry
		warnings []string
		margins  *models.MarginSet
	)
	err := runConcurrently(
		func() error {
			var err error
			entries, warnings, err = parseLedger(ledgerFile, payoutLedgerSpec)
			return err
		},
		func() error {
			var err error
			margins, err = parsers.ParseMRGMargins(marginFile.Data)
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	allocated := make(map[string]decimal.Decimal, len(margins.Amounts))
	for key, amount := range margins.Amounts {
		allocated[key] = amount
	}

	return d.engine.Reconcile(Inputs{
		Ledger:          entries,
		Allocation:      models.AllocationAggregate{Allocated: allocated, ProTotal: decimal.Zero},
		Margin:          margins,
		UnallocatedFund: unallocatedFund,
		Warnings:        warnings,
	}), nil
}
