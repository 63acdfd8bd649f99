package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/username/fundrecon/backend/src/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var testSpec = models.OutputSpec{
	SegmentCode:        "CO",
	ClearingMemberCode: "8090",
	TradingMemberCode:  "46365",
	UploadHeader:       "SegmentCode,CMCode,TMCode,CPCode,ClientCode,AccountType,Amount",
	UploadFilePattern:  "GLOBE_COLL_%s.T0004",
	LimitsFilePattern:  "MCX_LIMITS_%s.003",
	WorksheetName:      "MCX Reconciliation",
}

var testNow = time.Date(2026, time.August, 28, 15, 30, 0, 0, time.UTC)

func testResult() *models.ReconResult {
	return &models.ReconResult{
		Domain: "mcx",
		Records: []models.ReconRecord{
			{ClientKey: "A100", ClientName: "Alpha Traders", LedgerAmount: dec("1500"), AllocatedAmount: dec("1000"), Difference: dec("500"), Action: "A"},
			{ClientKey: "B200", ClientName: "Beta Comm", LedgerAmount: dec("800"), AllocatedAmount: dec("1200"), Difference: dec("-400.25"), Action: "D"},
			{ClientKey: "E500", LedgerAmount: dec("700"), AllocatedAmount: dec("700"), Difference: decimal.Zero, Action: ""},
		},
		Pro: models.ProFund{
			ProTotal:   dec("600000"),
			Adjustment: dec("-120000.50"),
			Action:     "D",
		},
	}
}

func TestBuildUploadFileLineLayout(t *testing.T) {
	name, data := BuildUploadFile(testResult(), testSpec, testNow)

	assert.Equal(t, "GLOBE_COLL_28082026.T0004", name)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, testSpec.UploadHeader, lines[0])
	// The proprietary line comes first: empty client key, " P" account type,
	// absolute rounded amount with trailing zeros trimmed, single-letter flag.
	assert.Equal(t, "28-Aug-2026,CO,8090,46365,,, P,120000.5,,,,,,,D", lines[1])
	assert.Equal(t, "28-Aug-2026,CO,8090,46365,,A100, C,500,,,,,,,A", lines[2])
	assert.Equal(t, "28-Aug-2026,CO,8090,46365,,B200, C,400.25,,,,,,,D", lines[3])

	for _, line := range lines[1:] {
		assert.Equal(t, uploadFieldCount, len(strings.Split(line, ",")))
	}
}

func TestBuildUploadFileSkipsDeadBandRecords(t *testing.T) {
	// The dead-band label is whatever the domain classifies with, not a
	// hard-coded constant.
	spec := testSpec
	spec.NilLabel = "NIL"
	res := testResult()
	res.Records[0].Action = "NIL"

	_, data := BuildUploadFile(res, spec, testNow)
	assert.NotContains(t, string(data), "A100")
	assert.NotContains(t, string(data), "E500")
}

func TestBuildUploadFileKeepsNILClientWhenNotTheDomainLabel(t *testing.T) {
	// A domain whose neutral label is empty uploads a client that happens to
	// carry the literal string "NIL" as its action.
	res := testResult()
	res.Records[0].Action = "NIL"

	_, data := BuildUploadFile(res, testSpec, testNow)
	assert.Contains(t, string(data), "A100")
}

func TestBuildUploadFileReducesWordActionsToFlags(t *testing.T) {
	res := testResult()
	res.Records[1].Action = "SHORT"
	res.Pro.Action = "EXCESS"

	_, data := BuildUploadFile(res, testSpec, testNow)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.True(t, strings.HasSuffix(lines[1], ",E"))
	assert.True(t, strings.HasSuffix(lines[3], ",S"))
}

func TestBuildUploadFileDayForMonthQuirk(t *testing.T) {
	spec := testSpec
	spec.FileDateQuirk = true
	spec.UploadFilePattern = "F_13181_%s.040"

	name, _ := BuildUploadFile(testResult(), spec, testNow)
	assert.Equal(t, "F_13181_28282026.040", name)
}

func TestBuildLimitsFile(t *testing.T) {
	name, data := BuildLimitsFile(testResult(), testSpec, testNow)

	assert.Equal(t, "MCX_LIMITS_28082026.003", name)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "RMS Limits", lines[0])
	// Only the positive rounded difference gets a limit line.
	assert.Equal(t, "A100|||||||no|500", lines[1])
}

func TestBuildLimitsFileRoundsToInteger(t *testing.T) {
	res := testResult()
	res.Records[0].Difference = dec("500.75")

	_, data := BuildLimitsFile(res, testSpec, testNow)
	assert.Contains(t, string(data), "A100|||||||no|501")
}

func TestBuildWorksheet(t *testing.T) {
	name, data, err := BuildWorksheet(testResult(), testSpec, testNow)
	require.NoError(t, err)
	assert.Equal(t, "mcx_28082026.xlsx", name)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(testSpec.WorksheetName)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 4)

	assert.Equal(t, "Client Code", rows[0][0])
	assert.Equal(t, "A100", rows[1][0])
	assert.Equal(t, "Alpha Traders", rows[1][1])
	assert.Equal(t, "A", rows[1][5])
}

func TestBuildWorksheetSanitizesFormulaCells(t *testing.T) {
	res := testResult()
	res.Records[0].ClientName = "=cmd|' /C calc'!A0"

	_, data, err := BuildWorksheet(res, testSpec, testNow)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	cell, err := f.GetCellValue(testSpec.WorksheetName, "B2")
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(cell, "="))
}
