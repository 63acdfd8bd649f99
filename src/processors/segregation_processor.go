package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/parsers"
)

var segregationLedgerSpec = LedgerSpec{
	Table: parsers.TableSpec{
		HeaderMarker: "UCC",
		Fields: []parsers.FieldSpec{
			{Name: "client", Marker: "UCC", Required: true},
			{Name: "name", Marker: "Client Name"},
			{Name: "cm", Marker: "NSE-CM", Required: true},
			{Name: "fo", Marker: "NSE-FO", Required: true},
			{Name: "cd", Marker: "NSE-CD", Required: true},
			{Name: "co", Marker: "MCX", Required: true},
		},
	},
	BalanceFields: []string{"cm", "fo", "cd", "co"},
}

// Segregation compares whole-house positions, so every segment pass of the
// feed contributes to one per-client sum.
var segregationAllocationSpec = AllocationSpec{
	KeyField:     "client",
	SegmentField: "segment",
	AccountField: "account",
	AmountField:  "amount",
	ProMarker:    "P",
	Segments: []SegmentPredicate{
		{Equals: "CM"},
		{Equals: "FO"},
		{Contains: "CD"},
		{Equals: "CO"},
	},
}

var segregationFeedTable = parsers.TableSpec{
	HeaderMarker: "Clicode",
	Fields: []parsers.FieldSpec{
		{Name: "client", Marker: "Clicode", Required: true},
		{Name: "segment", Marker: "Segments", Required: true},
		{Name: "account", Marker: "Acctype", Required: true},
		{Name: "amount", Marker: "Allocated", Required: true},
	},
}

// SegregationDomain reconciles total client funds across every segment for
// the daily segregation report. NRI clients settle through a separate
// custodian flow and are excluded via an uploaded list.
type SegregationDomain struct {
	engine *Engine
}

func NewSegregationDomain() *SegregationDomain {
	return &SegregationDomain{engine: NewEngine(DomainConfig{
		Name:             "segregation",
		Direction:        LedgerMinusAllocated,
		Epsilon:          decimal.Zero,
		ExcessAction:     "U",
		ShortAction:      "D",
		SkipRule:         SkipWhenNoMarginValue,
		ProDeduction:     decimal.NewFromInt(750000),
		RoundingConstant: decimal.NewFromInt(500),
		Output: models.OutputSpec{
			SegmentCode:        "ALL",
			ClearingMemberCode: "M50012",
			TradingMemberCode:  "13181",
			UploadHeader:       "SegmentCode,CMCode,TMCode,CPCode,ClientCode,AccountType,Amount",
			UploadFilePattern:  "SEG_%s.T0004",
			LimitsFilePattern:  "SEG_LIMITS_%s.003",
			WorksheetName:      "Segregation Worksheet",
		},
	})}
}

func (d *SegregationDomain) Name() string    { return "segregation" }
func (d *SegregationDomain) Engine() *Engine { return d.engine }

func (d *SegregationDomain) Process(files models.FileSet, unallocatedFund decimal.Decimal) (*models.ReconResult, error) {
	ledgerFile, ok := files["ledger"]
	if !ok {
		return nil, missingInput("ledger")
	}
	feedFile, ok := files["allocation"]
	if !ok {
		return nil, missingInput("allocation")
	}
	exclusionFile, hasExclusions := files["exclusions"]

	var (
		entries    []models.LedgerEntry
		warnings   []string
		agg        models.AllocationAggregate
		exclusions map[string]struct{}
	)
	tasks := []func() error{
		func() error {
			var err error
			entries, warnings, err = parseLedger(ledgerFile, segregationLedgerSpec)
			return err
		},
		func() error {
			grid, err := parsers.DecodeGrid(feedFile.Filename, feedFile.Data)
			if err != nil {
				return err
			}
			rows, err := parsers.ProjectRows(grid, segregationFeedTable)
			if err != nil {
				return err
			}
			agg = AggregateAllocations(rows, segregationAllocationSpec)
			return nil
		},
	}
	if hasExclusions {
		tasks = append(tasks, func() error {
			var err error
			exclusions, err = parsers.ParseExclusionList(exclusionFile.Filename, exclusionFile.Data)
			return err
		})
	}
	if err := runConcurrently(tasks...); err != nil {
		return nil, err
	}

	return d.engine.Reconcile(Inputs{
		Ledger:          entries,
		Allocation:      agg,
		Exclusions:      exclusions,
		UnallocatedFund: unallocatedFund,
		Warnings:        warnings,
	}), nil
}
