package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/parsers"
)

var nsecmLedgerSpec = LedgerSpec{
	Table: parsers.TableSpec{
		HeaderMarker: "Client Code",
		Fields: []parsers.FieldSpec{
			{Name: "client", Marker: "Client Code", Required: true},
			{Name: "name", Marker: "Client Name"},
			{Name: "balance", Marker: "NSE-CM", Required: true},
			{Name: "reported", Marker: "CM Total"},
		},
	},
	BalanceFields: []string{"balance"},
	ReportedField: "reported",
}

var nsecmAllocationSpec = AllocationSpec{
	KeyField:     "client",
	SegmentField: "segment",
	AccountField: "account",
	AmountField:  "amount",
	ProMarker:    "P",
	Segments:     []SegmentPredicate{{Equals: "CM"}},
}

var nsecmFeedTable = parsers.TableSpec{
	HeaderMarker: "Clicode",
	Fields: []parsers.FieldSpec{
		{Name: "client", Marker: "Clicode", Required: true},
		{Name: "segment", Marker: "Segments", Required: true},
		{Name: "account", Marker: "Acctype", Required: true},
		{Name: "amount", Marker: "Allocated", Required: true},
	},
}

// NSECMDomain reconciles the NSE capital-market segment. The difference is
// read from the exchange's side, a small dead band absorbs paise-level noise,
// and the risk terminal's margin workbook drives the 90% retention threshold
// and shortfall columns.
type NSECMDomain struct {
	engine *Engine
}

func NewNSECMDomain() *NSECMDomain {
	return &NSECMDomain{engine: NewEngine(DomainConfig{
		Name:             "nsecm",
		Direction:        AllocatedMinusLedger,
		Epsilon:          decimal.RequireFromString("0.01"),
		ExcessAction:     "EXCESS",
		ShortAction:      "SHORT",
		NilAction:        "NIL",
		SkipRule:         SkipWhenNoMarginValue,
		ProDeduction:     decimal.NewFromInt(250000),
		RoundingConstant: decimal.NewFromInt(500),
		ComputeThreshold: true,
		Output: models.OutputSpec{
			SegmentCode:        "CM",
			ClearingMemberCode: "M50012",
			TradingMemberCode:  "13181",
			UploadHeader:       "SegmentCode,CMCode,TMCode,CPCode,ClientCode,AccountType,Amount",
			NilLabel:           "NIL",
			UploadFilePattern:  "CM_COLL_%s.T0004",
			LimitsFilePattern:  "CM_LIMITS_%s.003",
			WorksheetName:      "NSE CM Reconciliation",
		},
	})}
}

func (d *NSECMDomain) Name() string    { return "nsecm" }
func (d *NSECMDomain) Engine() *Engine { return d.engine }

func (d *NSECMDomain) Process(files models.FileSet, unallocatedFund decimal.Decimal) (*models.ReconResult, error) {
	ledgerFile, ok := files["ledger"]
	if !ok {
		return nil, missingInput("ledger")
	}
	feedFile, ok := files["allocation"]
	if !ok {
		return nil, missingInput("allocation")
	}
	marginFile, ok := files["margin"]
	if !ok {
		return nil, missingInput("margin")
	}

	var (
		entries  []models.LedgerEntry
		warnings []string
		agg      models.AllocationAggregate
		margins  *models.MarginSet
	)
	err := runConcurrently(
		func() error {
			var err error
			entries, warnings, err = parseLedger(ledgerFile, nsecmLedgerSpec)
			return err
		},
		func() error {
			grid, err := parsers.DecodeGrid(feedFile.Filename, feedFile.Data)
			if err != nil {
				return err
			}
			rows, err := parsers.ProjectRows(grid, nsecmFeedTable)
			if err != nil {
				return err
			}
			agg = AggregateAllocations(rows, nsecmAllocationSpec)
			return nil
		},
		func() error {
			var err error
			margins, err = parsers.ParseSearchResultsMargins(marginFile.Filename, marginFile.Data)
			return err
		},
	)
	if err != nil {
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
