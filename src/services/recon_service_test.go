package services

import (
	"database/sql"
	"testing"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/username/fundrecon/backend/src/logger"
	"github.com/username/fundrecon/backend/src/models"
)

func newTestService(t *testing.T) ReconService {
	t.Helper()
	logger.InitLogger("error")

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
	CREATE TABLE recon_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		domain TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		record_count INTEGER NOT NULL,
		warning_count INTEGER NOT NULL DEFAULT 0,
		net_difference TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)

	return NewReconService(db, cache.New(cache.NoExpiration, 0))
}

func mcxFiles(ledger, feed string) models.FileSet {
	return models.FileSet{
		"ledger":     {Field: "ledger", Filename: "ledger.csv", Data: []byte(ledger)},
		"allocation": {Field: "allocation", Filename: "feed.csv", Data: []byte(feed)},
	}
}

const (
	testLedger = "UCC,Client Name,MCX Balance\nA100,Alpha Traders,-1500\nB200,Beta Comm,-800\n"
	testFeed   = "Clicode,Segments,Acctype,Allocated\nA100,CO,C,1000\nB200,CO,C,1200\n"
)

func TestProcessStoresResultAndAudit(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Process(1, "mcx", mcxFiles(testLedger, testFeed), decimal.Zero)
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.Len(t, result.Records, 2)

	latest, err := svc.Latest(1, "mcx")
	require.NoError(t, err)
	assert.Equal(t, result.RunID, latest.RunID)

	summary, err := svc.Summary(1, "mcx")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalRecords)

	runs, err := svc.Runs(1, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].RunID)
	assert.Equal(t, "mcx", runs[0].Domain)
}

func TestProcessReplacesPreviousResult(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.Process(1, "mcx", mcxFiles(testLedger, testFeed), decimal.Zero)
	require.NoError(t, err)

	smaller := "UCC,Client Name,MCX Balance\nA100,Alpha Traders,-1500\n"
	second, err := svc.Process(1, "mcx", mcxFiles(smaller, testFeed), decimal.Zero)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)

	latest, err := svc.Latest(1, "mcx")
	require.NoError(t, err)
	assert.Equal(t, second.RunID, latest.RunID)

	// The audit trail keeps both passes.
	runs, err := svc.Runs(1, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestResultsAreScopedPerUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Process(1, "mcx", mcxFiles(testLedger, testFeed), decimal.Zero)
	require.NoError(t, err)

	_, err = svc.Latest(2, "mcx")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestUnknownDomain(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Process(1, "bse", models.FileSet{}, decimal.Zero)
	assert.ErrorIs(t, err, ErrUnknownDomain)

	_, err = svc.Latest(1, "bse")
	assert.ErrorIs(t, err, ErrUnknownDomain)
}

func TestEditLedgerAmountRefoldsSummary(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.Process(1, "mcx", mcxFiles(testLedger, testFeed), decimal.Zero)
	require.NoError(t, err)

	edited, err := svc.EditLedgerAmount(1, "mcx", "B200", decimal.NewFromInt(1300))
	require.NoError(t, err)
	// Identity survives an edit; figures change.
	assert.Equal(t, first.RunID, edited.RunID)
	assert.True(t, edited.Records[1].LedgerAmount.Equal(decimal.NewFromInt(1300)))

	summary, err := svc.Summary(1, "mcx")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ActionCounts["A"])
	assert.True(t, summary.LedgerTotal.Equal(decimal.NewFromInt(2800)))
}

func TestSetUnallocatedFund(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Process(1, "mcx", mcxFiles(testLedger, testFeed), decimal.Zero)
	require.NoError(t, err)

	updated, err := svc.SetUnallocatedFund(1, "mcx", decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.True(t, updated.UnallocatedFund.Equal(decimal.NewFromInt(2)))

	latest, err := svc.Latest(1, "mcx")
	require.NoError(t, err)
	assert.True(t, latest.UnallocatedFund.Equal(decimal.NewFromInt(2)))
}

func TestDownloadsRequireAResult(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.UploadFile(1, "mcx")
	assert.ErrorIs(t, err, ErrNoResult)

	_, _, err = svc.LimitsFile(1, "mcx")
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = svc.Process(1, "mcx", mcxFiles(testLedger, testFeed), decimal.Zero)
	require.NoError(t, err)

	name, data, err := svc.UploadFile(1, "mcx")
	require.NoError(t, err)
	assert.Contains(t, name, ".T0004")
	assert.NotEmpty(t, data)
}
