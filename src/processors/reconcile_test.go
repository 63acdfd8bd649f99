package processors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/fundrecon/backend/src/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig() DomainConfig {
	return DomainConfig{
		Name:             "test",
		Direction:        LedgerMinusAllocated,
		Epsilon:          decimal.Zero,
		ExcessAction:     "U",
		ShortAction:      "D",
		SkipRule:         SkipWhenNoMarginValue,
		ProDeduction:     decimal.Zero,
		RoundingConstant: decimal.Zero,
	}
}

func ledgerEntries(pairs ...string) []models.LedgerEntry {
	var entries []models.LedgerEntry
	for i := 0; i+1 < len(pairs); i += 2 {
		entries = append(entries, models.LedgerEntry{
			ClientKey: pairs[i],
			Balance:   dec(pairs[i+1]),
		})
	}
	return entries
}

func allocation(pairs ...string) models.AllocationAggregate {
	agg := models.AllocationAggregate{
		Allocated: make(map[string]decimal.Decimal),
		ProTotal:  decimal.Zero,
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		agg.Allocated[pairs[i]] = dec(pairs[i+1])
	}
	return agg
}

func TestReconcileClassification(t *testing.T) {
	e := NewEngine(testConfig())

	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500", "B200", "800", "E500", "700"),
		Allocation: allocation("A100", "1000", "B200", "1200", "E500", "700"),
	})

	require.Len(t, res.Records, 3)

	assert.Equal(t, "U", res.Records[0].Action)
	assert.True(t, res.Records[0].Difference.Equal(dec("500")))

	assert.Equal(t, "D", res.Records[1].Action)
	assert.True(t, res.Records[1].Difference.Equal(dec("-400")))

	// Exact match lands inside the dead band.
	assert.Equal(t, "", res.Records[2].Action)
	assert.True(t, res.Records[2].Difference.IsZero())
}

func TestReconcileEpsilonDeadBand(t *testing.T) {
	cfg := testConfig()
	cfg.Epsilon = dec("0.01")
	cfg.NilAction = "NIL"
	e := NewEngine(cfg)

	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1000.00", "B200", "1000.00"),
		Allocation: allocation("A100", "999.99", "B200", "999.98"),
	})

	require.Len(t, res.Records, 2)
	assert.Equal(t, "NIL", res.Records[0].Action) // |0.01| <= epsilon
	assert.Equal(t, "U", res.Records[1].Action)   // 0.02 is outside
}

func TestReconcileDirectionAllocatedMinusLedger(t *testing.T) {
	cfg := testConfig()
	cfg.Direction = AllocatedMinusLedger
	e := NewEngine(cfg)

	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500"),
		Allocation: allocation("A100", "1000"),
	})

	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].Difference.Equal(dec("-500")))
	assert.Equal(t, "D", res.Records[0].Action)
}

func TestReconcileFirstSeenLedgerWins(t *testing.T) {
	e := NewEngine(testConfig())

	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500", "A100", "9999"),
		Allocation: allocation("A100", "1000"),
	})

	require.Len(t, res.Records, 1)
	assert.True(t, res.Records[0].LedgerAmount.Equal(dec("1500")))
}

func TestReconcileSynthesizesAllocationOnlyClients(t *testing.T) {
	e := NewEngine(testConfig())

	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500"),
		Allocation: allocation("A100", "1000", "Z900", "300", "Y800", "200", "X700", "0"),
	})

	// Ledger clients first in file order, then allocation-only clients in
	// sorted key order; zero allocations are not synthesized.
	require.Len(t, res.Records, 3)
	assert.Equal(t, "A100", res.Records[0].ClientKey)
	assert.Equal(t, "Y800", res.Records[1].ClientKey)
	assert.Equal(t, "Z900", res.Records[2].ClientKey)

	assert.True(t, res.Records[1].Synthesized)
	assert.True(t, res.Records[1].LedgerAmount.IsZero())
	assert.Equal(t, "D", res.Records[1].Action)
}

func TestReconcileOverrideForcesLedgerAmount(t *testing.T) {
	cfg := testConfig()
	cfg.Overrides = map[string]decimal.Decimal{
		"A100": dec("2500000"),
		"Z900": dec("100"),
	}
	e := NewEngine(cfg)

	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500"),
		Allocation: allocation("A100", "1000", "Z900", "300"),
	})

	require.Len(t, res.Records, 2)
	assert.True(t, res.Records[0].LedgerAmount.Equal(dec("2500000")))
	assert.True(t, res.Records[0].Overridden)

	// Overrides apply on the synthesized path too.
	assert.True(t, res.Records[1].LedgerAmount.Equal(dec("100")))
	assert.True(t, res.Records[1].Difference.Equal(dec("-200")))
}

func TestReconcileExclusions(t *testing.T) {
	e := NewEngine(testConfig())

	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500", "N001", "900"),
		Allocation: allocation("A100", "1000", "N002", "300"),
		Exclusions: map[string]struct{}{"N001": {}, "N002": {}},
	})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "A100", res.Records[0].ClientKey)
}

func TestReconcileSkipRules(t *testing.T) {
	margin := &models.MarginSet{Amounts: map[string]decimal.Decimal{
		"B200": decimal.Zero,
		"C300": dec("500"),
	}}
	in := Inputs{
		Ledger: ledgerEntries("A100", "0", "B200", "0", "C300", "0"),
		Allocation: models.AllocationAggregate{
			Allocated: map[string]decimal.Decimal{},
			ProTotal:  decimal.Zero,
		},
		Margin: margin,
	}

	// With SkipWhenNoMarginValue only a positive margin keeps the row.
	cfg := testConfig()
	res := NewEngine(cfg).Reconcile(in)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "C300", res.Records[0].ClientKey)

	// With SkipWhenMarginAbsent an explicit zero also keeps the row.
	cfg.SkipRule = SkipWhenMarginAbsent
	res = NewEngine(cfg).Reconcile(in)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "B200", res.Records[0].ClientKey)
	assert.Equal(t, "C300", res.Records[1].ClientKey)
}

func TestReconcileTotalsAndNetDifference(t *testing.T) {
	e := NewEngine(testConfig())

	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500", "B200", "800", "E500", "700"),
		Allocation: allocation("A100", "1000", "B200", "1200", "E500", "700"),
	})

	assert.True(t, res.UpgradeTotal.Equal(dec("500")))
	assert.True(t, res.DowngradeTotal.Equal(dec("400")))
	assert.True(t, res.NetDifference.Equal(dec("100")))
	assert.True(t, res.NetDifference.Equal(res.UpgradeTotal.Sub(res.DowngradeTotal)))
}

func TestReconcileProFundAdjustment(t *testing.T) {
	cfg := testConfig()
	cfg.ProDeduction = dec("500000")
	cfg.RoundingConstant = dec("1000")
	e := NewEngine(cfg)

	agg := allocation("A100", "1000")
	agg.ProTotal = dec("600000")

	res := e.Reconcile(Inputs{
		Ledger:          ledgerEntries("A100", "1500"),
		Allocation:      agg,
		UnallocatedFund: dec("2"), // entered in lakh
	})

	// 600000 - 500000 - 500 + 2*100000 - 1000 = 298500
	assert.True(t, res.Pro.Adjustment.Equal(dec("298500")), "got %s", res.Pro.Adjustment)
	assert.True(t, res.Pro.ProTotal.Equal(dec("600000")))
	// Adjustment below the pro total reads as a downgrade.
	assert.Equal(t, "D", res.Pro.Action)
}

func TestReconcileThresholdAndShortfall(t *testing.T) {
	cfg := testConfig()
	cfg.ComputeThreshold = true
	e := NewEngine(cfg)

	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "100000", "B200", "50000"),
		Allocation: allocation("A100", "100000", "B200", "50000"),
		Margin: &models.MarginSet{Amounts: map[string]decimal.Decimal{
			"A100": dec("95000"), // above the 90% threshold
			"B200": dec("40000"), // 5000 short of it
		}},
	})

	require.Len(t, res.Records, 2)
	assert.True(t, res.Records[0].Threshold.Equal(dec("90000")))
	assert.True(t, res.Records[0].Shortfall.Equal(dec("-5000")))
	assert.True(t, res.Records[1].Threshold.Equal(dec("45000")))
	assert.True(t, res.Records[1].Shortfall.Equal(dec("5000")))

	// Only negative shortfalls accumulate.
	assert.True(t, res.ShortfallTotal.Equal(dec("-5000")))
}

func TestReconcileSplitComponents(t *testing.T) {
	cfg := testConfig()
	cfg.SplitComponents = true
	e := NewEngine(cfg)

	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500"),
		Allocation: allocation("A100", "1000"),
	})

	rec := res.Records[0]
	assert.True(t, rec.CashComponent.Equal(dec("5")))
	assert.True(t, rec.CollateralComponent.Equal(dec("495")))
	assert.True(t, rec.CashComponent.Add(rec.CollateralComponent).Equal(rec.Difference.Abs()))
}

func TestApplyLedgerEditRecomputesEverything(t *testing.T) {
	e := NewEngine(testConfig())

	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500", "B200", "800"),
		Allocation: allocation("A100", "1000", "B200", "1200"),
	})

	next, err := e.ApplyLedgerEdit(res, "B200", dec("1300"))
	require.NoError(t, err)

	require.Len(t, next.Records, 2)
	edited := next.Records[1]
	assert.True(t, edited.LedgerAmount.Equal(dec("1300")))
	assert.True(t, edited.Difference.Equal(dec("100")))
	assert.Equal(t, "U", edited.Action)

	assert.True(t, next.UpgradeTotal.Equal(dec("600")))
	assert.True(t, next.DowngradeTotal.IsZero())
	assert.True(t, next.NetDifference.Equal(dec("600")))

	// The original result is untouched.
	assert.True(t, res.Records[1].LedgerAmount.Equal(dec("800")))
	assert.True(t, res.NetDifference.Equal(dec("100")))
}

func TestApplyLedgerEditUnknownClient(t *testing.T) {
	e := NewEngine(testConfig())
	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500"),
		Allocation: allocation("A100", "1000"),
	})

	_, err := e.ApplyLedgerEdit(res, "NOPE", dec("1"))
	assert.ErrorIs(t, err, ErrUnknownClient)
}

func TestApplyUnallocatedFund(t *testing.T) {
	e := NewEngine(testConfig())
	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500"),
		Allocation: allocation("A100", "1000"),
	})

	next := e.ApplyUnallocatedFund(res, dec("3"))

	assert.True(t, next.UnallocatedFund.Equal(dec("3")))
	// 0 - 0 - 500 + 300000 - 0
	assert.True(t, next.Pro.Adjustment.Equal(dec("299500")))
	// Records are untouched by the fund change.
	require.Len(t, next.Records, 1)
	assert.True(t, next.Records[0].Difference.Equal(res.Records[0].Difference))
}

func TestReconcileIsDeterministic(t *testing.T) {
	e := NewEngine(testConfig())
	in := Inputs{
		Ledger:     ledgerEntries("A100", "1500", "B200", "800"),
		Allocation: allocation("A100", "1000", "B200", "1200", "Z900", "300", "Y800", "200"),
	}

	first := e.Reconcile(in)
	second := e.Reconcile(in)

	require.Equal(t, len(first.Records), len(second.Records))
	for i := range first.Records {
		assert.Equal(t, first.Records[i].ClientKey, second.Records[i].ClientKey)
		assert.True(t, first.Records[i].Difference.Equal(second.Records[i].Difference))
	}
	assert.True(t, first.NetDifference.Equal(second.NetDifference))
}

func TestSummarize(t *testing.T) {
	e := NewEngine(testConfig())
	res := e.Reconcile(Inputs{
		Ledger:     ledgerEntries("A100", "1500", "B200", "800", "E500", "700"),
		Allocation: allocation("A100", "1000", "B200", "1200", "E500", "700", "Z900", "300"),
		Warnings:   []string{"client A100: ledger balance disagrees"},
	})

	summary := Summarize(res)
	assert.Equal(t, 4, summary.TotalRecords)
	assert.Equal(t, 1, summary.ActionCounts["U"])
	assert.Equal(t, 2, summary.ActionCounts["D"])
	assert.Equal(t, 1, summary.ActionCounts["NONE"])
	assert.Equal(t, 1, summary.Synthesized)
	assert.Equal(t, 1, summary.Warnings)
	assert.True(t, summary.LedgerTotal.Equal(dec("3000")))
	assert.True(t, summary.AllocatedTotal.Equal(dec("3200")))
}
