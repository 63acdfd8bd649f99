package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/parsers"
)

// mcxOverrides are clients whose commodity ledger figure is fixed by standing
// instruction regardless of what the day's export says.
var mcxOverrides = map[string]decimal.Decimal{
	"M0007": decimal.NewFromInt(2500000),
	"M0051": decimal.NewFromInt(1000000),
}

var mcxLedgerSpec = LedgerSpec{
	Table: parsers.TableSpec{
		HeaderMarker: "UCC",
		Fields: []parsers.FieldSpec{
			{Name: "client", Marker: "UCC", Required: true},
			{Name: "name", Marker: "Client Name"},
			{Name: "balance", Marker: "MCX", Required: true},
		},
	},
	BalanceFields: []string{"balance"},
}

var mcxAllocationSpec = AllocationSpec{
	KeyField:     "client",
	SegmentField: "segment",
	AccountField: "account",
	AmountField:  "amount",
	ProMarker:    "P",
	Segments:     []SegmentPredicate{{Equals: "CO"}},
}

var mcxFeedTable = parsers.TableSpec{
	HeaderMarker: "Clicode",
	Fields: []parsers.FieldSpec{
		{Name: "client", Marker: "Clicode", Required: true},
		{Name: "segment", Marker: "Segments", Required: true},
		{Name: "account", Marker: "Acctype", Required: true},
		{Name: "amount", Marker: "Allocated", Required: true},
	},
}

// MCXDomain reconciles the commodity segment: the risk ledger against the
// Globe allocation feed's CO rows, with an optional MRG margin report.
type MCXDomain struct {
	engine *Engine
}

func NewMCXDomain() *MCXDomain {
	return &MCXDomain{engine: NewEngine(DomainConfig{
		Name:             "mcx",
		Direction:        LedgerMinusAllocated,
		Epsilon:          decimal.Zero,
		ExcessAction:     "A",
		ShortAction:      "D",
		SkipRule:         SkipWhenMarginAbsent,
		ProDeduction:     decimal.NewFromInt(500000),
		RoundingConstant: decimal.NewFromInt(1000),
		Overrides:        mcxOverrides,
		Output: models.OutputSpec{
			SegmentCode:        "CO",
			ClearingMemberCode: "8090",
			TradingMemberCode:  "46365",
			UploadHeader:       "SegmentCode,CMCode,TMCode,CPCode,ClientCode,AccountType,Amount",
			UploadFilePattern:  "GLOBE_COLL_%s.T0004",
			LimitsFilePattern:  "MCX_LIMITS_%s.003",
			WorksheetName:      "MCX Reconciliation",
		},
	})}
}

func (d *MCXDomain) Name() string    { return "mcx" }
func (d *MCXDomain) Engine() *Engine { return d.engine }

func (d *MCXDomain) Process(files models.FileSet, unallocatedFund decimal.Decimal) (*models.ReconResult, error) {
	ledgerFile, ok := files["ledger"]
	if !ok {
		return nil, missingInput("ledger")
	}
	feedFile, ok := files["allocation"]
	if !ok {
		return nil, missingInput("allocation")
	}
	marginFile, hasMarginFile := files["margin"]

	var (
		entries  []models.LedgerEntry
		warnings []string
		agg      models.AllocationAggregate
		margins  *models.MarginSet
	)
	tasks := []func() error{
		func() error {
			var err error
			entries, warnings, err = parseLedger(ledgerFile, mcxLedgerSpec)
			return err
		},
		func() error {
			grid, err := parsers.DecodeGrid(feedFile.Filename, feedFile.Data)
			if err != nil {
				return err
			}
			rows, err := parsers.ProjectRows(grid, mcxFeedTable)
			if err != nil {
				return err
			}
			agg = AggregateAllocations(rows, mcxAllocationSpec)
			return nil
		},
	}
	if hasMarginFile {
		tasks = append(tasks, func() error {
			var err error
			margins, err = parsers.ParseMRGMargins(marginFile.Data)
			return err
		})
	}
	if err := runConcurrently(tasks...); err != nil {
		return nil, err
	}

	return d.engine.Reconcile(Inputs{
		Ledger:          entries,
		Allocation:      agg,
		Margin:          margins,
		UnallocatedFund: unallocatedFund,
		Warnings:        warnings,
	}), nil
}
