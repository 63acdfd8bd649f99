package parsers

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a numeric cell the way the risk sheets are actually
// filled in: thousands separators, currency marks and other junk are stripped,
// and anything that still fails to parse is worth zero, not an error.
func ParseAmount(cell string) decimal.Decimal {
	cleaned := cleanNumeric(cell)
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// cleanNumeric keeps digits, the dots, and a minus only as the first kept
// rune, so a stripped prefix like a currency mark cannot swallow the sign.
func cleanNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LedgerBalance applies the ledger sign convention: the source stores credit
// balances (amounts owed to the client) as negatives, so the cell is negated
// to obtain a positive balance, and anything non-positive after the flip means
// the client owes nothing.
func LedgerBalance(cell string) decimal.Decimal {
	flipped := ParseAmount(cell).Neg()
	if flipped.Sign() <= 0 {
		return decimal.Zero
	}
	return flipped
}
