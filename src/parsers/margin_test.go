package parsers

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mrgLine(rowType, client, margin string) string {
	fields := make([]string, 14)
	fields[0] = rowType
	fields[3] = client
	fields[12] = margin
	return strings.Join(fields, ",")
}

func TestParseMRGMargins(t *testing.T) {
	data := []byte(strings.Join([]string{
		mrgLine("10", "", ""), // file header record
		mrgLine("30", "A100", "5000.25"),
		mrgLine("30", "B200", "1200"),
		mrgLine("50", "", ""), // trailer record
	}, "\n"))

	set, err := ParseMRGMargins(data)
	require.NoError(t, err)
	require.Len(t, set.Amounts, 2)

	got, ok := set.Lookup("A100")
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.RequireFromString("5000.25")))
}

func TestParseMRGMarginsLastWriteWins(t *testing.T) {
	data := []byte(strings.Join([]string{
		mrgLine("30", "A100", "5000"),
		mrgLine("30", "A100", "7500"), // correction later in the file
	}, "\n"))

	set, err := ParseMRGMargins(data)
	require.NoError(t, err)

	got, ok := set.Lookup("A100")
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.NewFromInt(7500)))
}

func TestParseMRGMarginsSkipsShortRows(t *testing.T) {
	data := []byte("30,too,short\n" + mrgLine("30", "A100", "100"))

	set, err := ParseMRGMargins(data)
	require.NoError(t, err)
	assert.Len(t, set.Amounts, 1)
}

func TestParseSearchResultsMargins(t *testing.T) {
	data := []byte(strings.Join([]string{
		"SearchResults export",
		"Client Code,Client Name,Total MU (Rs)",
		"A100,Alpha Traders,90000.50",
		"B200,Beta Comm,0",
	}, "\n"))

	set, err := ParseSearchResultsMargins("searchresults.csv", data)
	require.NoError(t, err)

	got, ok := set.Lookup("A100")
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.RequireFromString("90000.50")))

	// An explicit zero is still a reported margin.
	zero, ok := set.Lookup("B200")
	require.True(t, ok)
	assert.True(t, zero.IsZero())
}

func TestParseExclusionList(t *testing.T) {
	data := []byte("Client Code\nN001\nN002\n\nN001\n")

	keys, err := ParseExclusionList("nri.csv", data)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	_, ok := keys["N001"]
	assert.True(t, ok)
}
