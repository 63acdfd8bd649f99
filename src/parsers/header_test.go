package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clientBalanceSpec = TableSpec{
	HeaderMarker: "UCC",
	Fields: []FieldSpec{
		{Name: "client", Marker: "UCC", Required: true},
		{Name: "name", Marker: "Client Name"},
		{Name: "balance", Marker: "MCX", Required: true},
	},
}

func TestProjectRowsFindsHeaderPastPreamble(t *testing.T) {
	grid := [][]string{
		{"Risk Report"},
		{"Generated: 28-08-2026"},
		{},
		{"UCC", "Client Name", "MCX Balance"},
		{"A100", "Alpha Traders", "-1500.50"},
		{"B200", "Beta Comm", "-800"},
	}

	rows, err := ProjectRows(grid, clientBalanceSpec)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A100", rows[0]["client"])
	assert.Equal(t, "Alpha Traders", rows[0]["name"])
	assert.Equal(t, "-1500.50", rows[0]["balance"])
	assert.Equal(t, "B200", rows[1]["client"])
}

func TestProjectRowsNormalizesUglyHeaders(t *testing.T) {
	grid := [][]string{
		{"<b>UCC</b>", "Client   Name", "  mcx  balance "},
		{"A100", "Alpha", "-10"},
	}

	rows, err := ProjectRows(grid, clientBalanceSpec)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A100", rows[0]["client"])
	assert.Equal(t, "-10", rows[0]["balance"])
}

func TestProjectRowsHeaderNotFound(t *testing.T) {
	grid := [][]string{
		{"completely"},
		{"unrelated", "content"},
	}

	_, err := ProjectRows(grid, clientBalanceSpec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestProjectRowsMissingRequiredColumn(t *testing.T) {
	grid := [][]string{
		{"UCC", "Client Name"}, // no balance column
		{"A100", "Alpha"},
	}

	_, err := ProjectRows(grid, clientBalanceSpec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestProjectRowsOptionalColumnMayBeAbsent(t *testing.T) {
	grid := [][]string{
		{"UCC", "MCX"},
		{"A100", "-10"},
	}

	rows, err := ProjectRows(grid, clientBalanceSpec)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, hasName := rows[0]["name"]
	assert.False(t, hasName)
}

func TestProjectRowsSkipsShortAndEmptyRows(t *testing.T) {
	grid := [][]string{
		{"UCC", "Client Name", "MCX"},
		{"A100", "Alpha", "-10"},
		{"stub"}, // shorter than the highest mapped column
		{"", "", ""},
		{"B200", "Beta", "-20"},
	}

	rows, err := ProjectRows(grid, clientBalanceSpec)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A100", rows[0]["client"])
	assert.Equal(t, "B200", rows[1]["client"])
}

func TestProjectRowsHeaderBeyondScanWindow(t *testing.T) {
	grid := make([][]string, 0, headerScanWindow+2)
	for i := 0; i < headerScanWindow; i++ {
		grid = append(grid, []string{"filler"})
	}
	grid = append(grid, []string{"UCC", "Client Name", "MCX"})
	grid = append(grid, []string{"A100", "Alpha", "-10"})

	_, err := ProjectRows(grid, clientBalanceSpec)
	assert.ErrorIs(t, err, ErrHeaderNotFound)
}
