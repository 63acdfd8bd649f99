package processors

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/parsers"
	"github.com/username/fundrecon/backend/src/utils"
)

var nsefoLedgerSpec = LedgerSpec{
	Table: parsers.TableSpec{
		HeaderMarker: "UCC",
		Fields: []parsers.FieldSpec{
			{Name: "client", Marker: "UCC", Required: true},
			{Name: "name", Marker: "Client Name"},
			{Name: "fo", Marker: "NSE-FO", Required: true},
			{Name: "cd", Marker: "NSE-CD", Required: true},
		},
	},
	BalanceFields: []string{"fo", "cd"},
}

// The derivatives feed is reconciled over two independent segment passes: the
// futures rows match the FO label exactly, while the currency rows are picked
// up by substring because the label varies across exports.
var nsefoAllocationSpec = AllocationSpec{
	KeyField:     "client",
	SegmentField: "segment",
	AccountField: "account",
	AmountField:  "amount",
	ProMarker:    "P",
	Segments: []SegmentPredicate{
		{Equals: "FO"},
		{Contains: "CD"},
	},
}

var nsefoFeedTable = parsers.TableSpec{
	HeaderMarker: "Clicode",
	Fields: []parsers.FieldSpec{
		{Name: "client", Marker: "Clicode", Required: true},
		{Name: "segment", Marker: "Segments", Required: true},
		{Name: "account", Marker: "Acctype", Required: true},
		{Name: "amount", Marker: "Allocated", Required: true},
	},
}

// NSEFODomain reconciles the derivatives segments (futures plus currency)
// against the Globe allocation feed. The feed file must be the day's own
// export, which is enforced through the date stamp in its filename.
type NSEFODomain struct {
	engine *Engine
	now    func() time.Time
}

func NewNSEFODomain() *NSEFODomain {
	return &NSEFODomain{
		engine: NewEngine(DomainConfig{
			Name:             "nsefo",
			Direction:        LedgerMinusAllocated,
			Epsilon:          decimal.Zero,
			ExcessAction:     "U",
			ShortAction:      "D",
			ProDeduction:     decimal.NewFromInt(1000000),
			RoundingConstant: decimal.NewFromInt(1000),
			SkipRule:         SkipWhenNoMarginValue,
			SplitComponents:  true,
			Output: models.OutputSpec{
				SegmentCode:        "FO",
				ClearingMemberCode: "M50012",
				TradingMemberCode:  "13181",
				UploadHeader:       "SegmentCode,CMCode,TMCode,CPCode,ClientCode,AccountType,Amount",
				UploadFilePattern:  "F_13181_%s.040",
				LimitsFilePattern:  "FO_LIMITS_%s.003",
				WorksheetName:      "NSE FO Reconciliation",
				FileDateQuirk:      true,
			},
		}),
		now: time.Now,
	}
}

func (d *NSEFODomain) Name() string    { return "nsefo" }
func (d *NSEFODomain) Engine() *Engine { return d.engine }

func (d *NSEFODomain) Process(files models.FileSet, unallocatedFund decimal.Decimal) (*models.ReconResult, error) {
	ledgerFile, ok := files["ledger"]
	if !ok {
		return nil, missingInput("ledger")
	}
	feedFile, ok := files["allocation"]
	if !ok {
		return nil, missingInput("allocation")
	}
	stamp := utils.FileDate(d.now())
	if !strings.Contains(feedFile.Filename, stamp) {
		return nil, fmt.Errorf("%w: %s should carry today's stamp %s",
			ErrFilenameMismatch, feedFile.Filename, stamp)
	}

	var (
		entries  []models.LedgerEntry
		warnings []string
		agg      models.AllocationAggregate
	)
	err := runConcurrently(
		func() error {
			var err error
			entries, warnings, err = parseLedger(ledgerFile, nsefoLedgerSpec)
			return err
		},
		func() error {
			grid, err := parsers.DecodeGrid(feedFile.Filename, feedFile.Data)
			if err != nil {
				return err
			}
			rows, err := parsers.ProjectRows(grid, nsefoFeedTable)
			if err != nil {
				return err
			}
			agg = AggregateAllocations(rows, nsefoAllocationSpec)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	return d.engine.Reconcile(Inputs{
		Ledger:          entries,
		Allocation:      agg,
		UnallocatedFund: unallocatedFund,
		Warnings:        warnings,
	}), nil
}
