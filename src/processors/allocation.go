package processors

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/parsers"
)

// SegmentPredicate selects allocation rows for one pass. Equals wins when set;
// otherwise Contains does a substring match. The CD family of segment labels
// varies across exports ("CD", "CDX", "NSE CD"), hence the substring form.
type SegmentPredicate struct {
	Equals   string
	Contains string
}

func (p SegmentPredicate) Match(segment string) bool {
	if p.Equals != "" {
		return segment == p.Equals
	}
	return strings.Contains(segment, p.Contains)
}

// AllocationSpec describes how to fold one allocation feed: which projected
// fields carry the key, segment, account type and amount, which account-type
// value marks proprietary rows, and which segment passes to run.
type AllocationSpec struct {
	KeyField     string
	SegmentField string
	AccountField string
	AmountField  string
	ProMarker    string
	Segments     []SegmentPredicate
}

// AggregateAllocations folds the projected allocation rows into per-client
// sums plus the proprietary scalar. Each segment predicate is an independent
// pass over the rows; their per-client sums add up and so do their pro
// figures. Within one pass a repeated proprietary row replaces the previous
// one, which is how the feed restates the house figure.
func AggregateAllocations(rows []models.RawRow, spec AllocationSpec) models.AllocationAggregate {
	agg := models.AllocationAggregate{
		Allocated: make(map[string]decimal.Decimal),
		ProTotal:  decimal.Zero,
	}
	for _, pred := range spec.Segments {
		passPro := decimal.Zero
		proSeen := false
		for _, row := range rows {
			if !pred.Match(strings.TrimSpace(row[spec.SegmentField])) {
				continue
			}
			amount := parsers.ParseAmount(row[spec.AmountField])
			if strings.TrimSpace(row[spec.AccountField]) == spec.ProMarker {
				passPro = amount
				proSeen = true
				continue
			}
			key := strings.TrimSpace(row[spec.KeyField])
			if key == "" {
				continue
			}
			agg.Allocated[key] = agg.Allocated[key].Add(amount)
		}
		if proSeen {
			agg.ProTotal = agg.ProTotal.Add(passPro)
		}
	}
	return agg
}
