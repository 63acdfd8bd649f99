package processors

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
)

// Direction says which way the per-client difference is signed.
type Direction int

const (
	// LedgerMinusAllocated: positive difference means the ledger holds more
	// than the exchange was told about, so funds move up to the exchange.
	LedgerMinusAllocated Direction = iota
	// AllocatedMinusLedger: positive difference means the exchange holds the
	// excess.
	AllocatedMinusLedger
)

// SkipRule controls when a zero-against-zero client is left out entirely.
type SkipRule int

const (
	// SkipWhenNoMarginValue drops a client with zero ledger and zero
	// allocation unless a positive margin figure exists for it.
	SkipWhenNoMarginValue SkipRule = iota
	// SkipWhenMarginAbsent drops such a client only when the margin feed has
	// no record at all; an explicit zero keeps the client visible.
	SkipWhenMarginAbsent
)

var (
	ninetyPercent = decimal.RequireFromString("0.9")
	onePercent    = decimal.RequireFromString("0.01")
	// lakh converts the operator-entered unallocated fund, taken in lakh,
	// to rupees before it enters the proprietary adjustment.
	lakh = decimal.NewFromInt(100000)
)

// DomainConfig carries everything that distinguishes one business domain:
// the sign convention, the action vocabulary, the zero-row skip rule, the
// house-account constants, forced ledger figures for specific clients, and
// the exchange file layout.
type DomainConfig struct {
	Name      string
	Direction Direction

	// Epsilon is the dead band for the neutral action. Domains without a
	// neutral action use zero and an empty NilAction.
	Epsilon      decimal.Decimal
	ExcessAction string
	ShortAction  string
	NilAction    string

	SkipRule SkipRule

	// ProDeduction and RoundingConstant enter the proprietary fund
	// adjustment; Overrides force the ledger figure for the named clients.
	ProDeduction     decimal.Decimal
	RoundingConstant decimal.Decimal
	Overrides        map[string]decimal.Decimal

	// ComputeThreshold adds the 90% retention threshold and margin shortfall
	// columns; SplitComponents adds the 1%/99% cash/collateral split.
	ComputeThreshold bool
	SplitComponents  bool

	Output models.OutputSpec
}

// Inputs is the parsed, aggregated material one reconciliation pass consumes.
type Inputs struct {
	Ledger          []models.LedgerEntry
	Allocation      models.AllocationAggregate
	Margin          *models.MarginSet
	Exclusions      map[string]struct{}
	UnallocatedFund decimal.Decimal
	Warnings        []string
}

// Engine joins a ledger against an allocation aggregate under one domain's
// rules. It is stateless; every call builds a fresh result.
type Engine struct {
	cfg DomainConfig
}

func NewEngine(cfg DomainConfig) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() DomainConfig {
	return e.cfg
}

// Reconcile performs the union join. Ledger rows come first in their file
// order with repeated keys keeping the first occurrence; clients that only
// appear on the allocation side follow in sorted key order so repeated runs
// over the same inputs produce identical output.
func (e *Engine) Reconcile(in Inputs) *models.ReconResult {
	seen := make(map[string]bool, len(in.Ledger))
	records := make([]models.ReconRecord, 0, len(in.Ledger))

	for _, entry := range in.Ledger {
		key := strings.TrimSpace(entry.ClientKey)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if _, excluded := in.Exclusions[key]; excluded {
			continue
		}

		ledger := entry.Balance
		overridden := false
		if forced, ok := e.cfg.Overrides[key]; ok {
			ledger = forced
			overridden = true
		}
		allocated := in.Allocation.Allocated[key]
		margin, hasMargin := in.Margin.Lookup(key)

		if e.shouldSkip(ledger, allocated, margin, hasMargin) {
			continue
		}
		records = append(records, e.buildRecord(recordSeed{
			key:        key,
			name:       entry.ClientName,
			ledger:     ledger,
			allocated:  allocated,
			margin:     margin,
			hasMargin:  hasMargin,
			overridden: overridden,
		}))
	}

	var extra []string
	for key, allocated := range in.Allocation.Allocated {
		if seen[key] {
			continue
		}
		if _, excluded := in.Exclusions[key]; excluded {
			continue
		}
		if allocated.Sign() <= 0 {
			continue
		}
		extra = append(extra, key)
	}
	sort.Strings(extra)
	for _, key := range extra {
		ledger := decimal.Zero
		overridden := false
		if forced, ok := e.cfg.Overrides[key]; ok {
			ledger = forced
			overridden = true
		}
		margin, hasMargin := in.Margin.Lookup(key)
		records = append(records, e.buildRecord(recordSeed{
			key:         key,
			ledger:      ledger,
			allocated:   in.Allocation.Allocated[key],
			margin:      margin,
			hasMargin:   hasMargin,
			synthesized: true,
			overridden:  overridden,
		}))
	}

	return e.finalize(records, in.Allocation.ProTotal, in.UnallocatedFund, in.Warnings)
}

// ApplyLedgerEdit replaces one client's ledger figure and rebuilds the result
// from the surviving records. The edited record keeps its allocation, margin
// and provenance flags; every aggregate is refolded.
func (e *Engine) ApplyLedgerEdit(res *models.ReconResult, clientKey string, amount decimal.Decimal) (*models.ReconResult, error) {
	idx := -1
	for i := range res.Records {
		if res.Records[i].ClientKey == clientKey {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClient, clientKey)
	}

	records := make([]models.ReconRecord, len(res.Records))
	copy(records, res.Records)
	old := records[idx]
	records[idx] = e.buildRecord(recordSeed{
		key:         old.ClientKey,
		name:        old.ClientName,
		ledger:      amount,
		allocated:   old.AllocatedAmount,
		margin:      old.MarginAmount,
		hasMargin:   old.HasMargin,
		synthesized: old.Synthesized,
		overridden:  old.Overridden,
	})

	next := e.finalize(records, res.Pro.ProTotal, res.UnallocatedFund, res.Warnings)
	next.Domain = res.Domain
	return next, nil
}

// ApplyUnallocatedFund rebuilds the result with a new unallocated fund
// figure. Only the proprietary adjustment depends on it, but the whole result
// is refolded the same way Reconcile builds it.
func (e *Engine) ApplyUnallocatedFund(res *models.ReconResult, amount decimal.Decimal) *models.ReconResult {
	records := make([]models.ReconRecord, len(res.Records))
	copy(records, res.Records)
	next := e.finalize(records, res.Pro.ProTotal, amount, res.Warnings)
	next.Domain = res.Domain
	return next
}

type recordSeed struct {
	key         string
	name        string
	ledger      decimal.Decimal
	allocated   decimal.Decimal
	margin      decimal.Decimal
	hasMargin   bool
	synthesized bool
	overridden  bool
}

func (e *Engine) shouldSkip(ledger, allocated, margin decimal.Decimal, hasMargin bool) bool {
	if ledger.Sign() != 0 || allocated.Sign() != 0 {
		return false
	}
	if e.cfg.SkipRule == SkipWhenMarginAbsent {
		return !hasMargin
	}
	return !hasMargin || margin.Sign() <= 0
}

func (e *Engine) buildRecord(seed recordSeed) models.ReconRecord {
	var diff decimal.Decimal
	if e.cfg.Direction == LedgerMinusAllocated {
		diff = seed.ledger.Sub(seed.allocated)
	} else {
		diff = seed.allocated.Sub(seed.ledger)
	}

	rec := models.ReconRecord{
		ClientKey:       seed.key,
		ClientName:      seed.name,
		LedgerAmount:    seed.ledger,
		AllocatedAmount: seed.allocated,
		Difference:      diff,
		Action:          e.classify(diff),
		MarginAmount:    seed.margin,
		HasMargin:       seed.hasMargin,
		Synthesized:     seed.synthesized,
		Overridden:      seed.overridden,
	}

	if e.cfg.ComputeThreshold {
		rec.Threshold = seed.ledger.Mul(ninetyPercent).Round(2)
		if seed.hasMargin {
			rec.Shortfall = rec.Threshold.Sub(seed.margin)
		}
	}
	if e.cfg.SplitComponents && rec.Action != e.cfg.NilAction {
		moved := diff.Abs()
		rec.CashComponent = moved.Mul(onePercent).Round(2)
		rec.CollateralComponent = moved.Sub(rec.CashComponent)
	}
	return rec
}

func (e *Engine) classify(diff decimal.Decimal) string {
	if diff.Abs().Cmp(e.cfg.Epsilon) <= 0 {
		return e.cfg.NilAction
	}
	if diff.Sign() > 0 {
		return e.cfg.ExcessAction
	}
	return e.cfg.ShortAction
}

// finalize folds the record set into the result totals and the proprietary
// fund adjustment. NetDifference counts only records outside the dead band,
// the upgrade and downgrade totals are both non-negative, and the shortfall
// total sums only the negative shortfalls of margin-reported clients.
func (e *Engine) finalize(records []models.ReconRecord, proTotal, unallocatedFund decimal.Decimal, warnings []string) *models.ReconResult {
	upgrade := decimal.Zero
	downgrade := decimal.Zero
	shortfall := decimal.Zero
	for i := range records {
		diff := records[i].Difference
		switch {
		case diff.Cmp(e.cfg.Epsilon) > 0:
			upgrade = upgrade.Add(diff)
		case diff.Neg().Cmp(e.cfg.Epsilon) > 0:
			downgrade = downgrade.Add(diff.Abs())
		}
		if e.cfg.ComputeThreshold && records[i].HasMargin && records[i].Shortfall.Sign() < 0 {
			shortfall = shortfall.Add(records[i].Shortfall)
		}
	}
	net := upgrade.Sub(downgrade)

	adjustment := proTotal.
		Sub(e.cfg.ProDeduction).
		Sub(net).
		Add(unallocatedFund.Mul(lakh)).
		Sub(e.cfg.RoundingConstant)
	proAction := e.cfg.ShortAction
	if adjustment.Cmp(proTotal) >= 0 {
		proAction = e.cfg.ExcessAction
	}

	return &models.ReconResult{
		Domain:          e.cfg.Name,
		GeneratedAt:     time.Now(),
		Records:         records,
		Pro:             models.ProFund{ProTotal: proTotal, Adjustment: adjustment, Action: proAction},
		NetDifference:   net,
		UpgradeTotal:    upgrade,
		DowngradeTotal:  downgrade,
		ShortfallTotal:  shortfall,
		UnallocatedFund: unallocatedFund,
		Warnings:        warnings,
	}
}
