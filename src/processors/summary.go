package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
)

// Summarize folds a reconciliation result into the dashboard header figures.
// The fold is pure; it is computed once per stored result and cached next to
// it.
func Summarize(res *models.ReconResult) *models.ReconSummary {
	summary := &models.ReconSummary{
		Domain:         res.Domain,
		TotalRecords:   len(res.Records),
		ActionCounts:   make(map[string]int),
		LedgerTotal:    decimal.Zero,
		AllocatedTotal: decimal.Zero,
		UpgradeTotal:   res.UpgradeTotal,
		DowngradeTotal: res.DowngradeTotal,
		ShortfallTotal: res.ShortfallTotal,
		Warnings:       len(res.Warnings),
	}
	for i := range res.Records {
		rec := &res.Records[i]
		summary.LedgerTotal = summary.LedgerTotal.Add(rec.LedgerAmount)
		summary.AllocatedTotal = summary.AllocatedTotal.Add(rec.AllocatedAmount)
		action := rec.Action
		if action == "" {
			action = "NONE"
		}
		summary.ActionCounts[action]++
		if rec.HasMargin {
			summary.MarginReported++
		}
		if rec.Synthesized {
			summary.Synthesized++
		}
	}
	return summary
}
