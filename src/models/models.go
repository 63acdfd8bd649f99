package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one ingested data row projected onto the mapped header fields.
// It only lives for the duration of a single reconciliation pass.
type RawRow map[string]string

// LedgerEntry is one client's balance as parsed from the risk-ledger sheet.
// The sheet stores credit balances as negatives; by the time an entry is built
// the amount has been sign-flipped and clamped to non-negative.
type LedgerEntry struct {
	ClientKey  string
	ClientName string
	Balance    decimal.Decimal
}

// AllocationAggregate holds the per-client summed "Allocated" amounts from an
// exchange allocation feed, plus the proprietary-account total captured from
// rows whose account type carries the pro marker.
type AllocationAggregate struct {
	Allocated map[string]decimal.Decimal
	ProTotal  decimal.Decimal
}

// MarginSet is the per-client margin figures from a margin feed. Presence in
// the map is meaningful: some skip rules distinguish a zero margin from an
// absent one.
type MarginSet struct {
	Amounts map[string]decimal.Decimal
}

func (m *MarginSet) Lookup(key string) (decimal.Decimal, bool) {
	if m == nil || m.Amounts == nil {
		return decimal.Zero, false
	}
	v, ok := m.Amounts[key]
	return v, ok
}

// InputFile is one uploaded file of a reconciliation pass, already read into
// memory by the handler. Field is the multipart form field it arrived under.
type InputFile struct {
	Field    string
	Filename string
	Data     []byte
}

// FileSet maps form field name -> uploaded file for one pass.
type FileSet map[string]InputFile

// ReconRecord is the per-client outcome of a reconciliation pass.
type ReconRecord struct {
	ClientKey       string          `json:"client_key"`
	ClientName      string          `json:"client_name,omitempty"`
	LedgerAmount    decimal.Decimal `json:"ledger_amount"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	Difference      decimal.Decimal `json:"difference"`
	Action          string          `json:"action"`
	MarginAmount    decimal.Decimal `json:"margin_amount"`
	HasMargin       bool            `json:"has_margin"`
	Synthesized     bool            `json:"synthesized"` // present only in the allocation feed
	Overridden      bool            `json:"overridden"`  // ledger amount forced by the override list

	// Derived risk fields, zero for domains that do not compute them.
	Threshold           decimal.Decimal `json:"threshold"`
	Shortfall           decimal.Decimal `json:"shortfall"`
	CashComponent       decimal.Decimal `json:"cash_component"`
	CollateralComponent decimal.Decimal `json:"collateral_component"`
}

// ProFund is the aggregate proprietary-fund adjustment of a pass.
type ProFund struct {
	ProTotal   decimal.Decimal `json:"pro_total"`  // raw pro-account total from the feed
	Adjustment decimal.Decimal `json:"adjustment"` // post-deduction, net of client differences
	Action     string          `json:"action"`
}

// ReconResult is the full output of one reconciliation pass. It is never
// mutated in place: inline edits and unallocated-fund changes produce a fresh
// result that replaces this one in the cache.
type ReconResult struct {
	Domain          string          `json:"domain"`
	RunID           string          `json:"run_id"`
	GeneratedAt     time.Time       `json:"generated_at"`
	Records         []ReconRecord   `json:"records"`
	Pro             ProFund         `json:"pro"`
	NetDifference   decimal.Decimal `json:"net_difference"`
	UpgradeTotal    decimal.Decimal `json:"upgrade_total"`
	DowngradeTotal  decimal.Decimal `json:"downgrade_total"`
	ShortfallTotal  decimal.Decimal `json:"shortfall_total"`
	UnallocatedFund decimal.Decimal `json:"unallocated_fund"` // as entered, before scaling
	Warnings        []string        `json:"warnings"`
}

// ReconSummary is the dashboard fold over one result set.
type ReconSummary struct {
	Domain         string          `json:"domain"`
	TotalRecords   int             `json:"total_records"`
	ActionCounts   map[string]int  `json:"action_counts"`
	LedgerTotal    decimal.Decimal `json:"ledger_total"`
	AllocatedTotal decimal.Decimal `json:"allocated_total"`
	UpgradeTotal   decimal.Decimal `json:"upgrade_total"`
	DowngradeTotal decimal.Decimal `json:"downgrade_total"`
	ShortfallTotal decimal.Decimal `json:"shortfall_total"`
	MarginReported int             `json:"margin_reported"` // records with a nonzero margin figure
	Synthesized    int             `json:"synthesized"`
	Warnings       int             `json:"warnings"`
}

// ReconRun is one row of the pass audit trail kept in sqlite. Only metadata is
// persisted; the record sets themselves live in the in-memory result cache.
type ReconRun struct {
	RunID         string    `json:"run_id"`
	Domain        string    `json:"domain"`
	UserID        int64     `json:"user_id"`
	RecordCount   int       `json:"record_count"`
	WarningCount  int       `json:"warning_count"`
	NetDifference string    `json:"net_difference"`
	CreatedAt     time.Time `json:"created_at"`
}

// OutputSpec carries the exchange routing constants and file-format literals of
// one domain. These are external-system contracts, not computed values.
type OutputSpec struct {
	SegmentCode        string
	ClearingMemberCode string
	TradingMemberCode  string
	UploadHeader       string // literal first line of the exchange upload file
	NilLabel           string // the domain's neutral action label, never uploaded
	UploadFilePattern  string // fmt pattern, %s = DDMMYYYY date
	LimitsFilePattern  string
	WorksheetName      string
	FileDateQuirk      bool // reproduce the upstream day-for-month filename bug
}
