package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/username/fundrecon/backend/src/export"
	"github.com/username/fundrecon/backend/src/logger"
	"github.com/username/fundrecon/backend/src/model"
	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/processors"
)

var (
	// ErrUnknownDomain is returned for a domain name outside the registry.
	ErrUnknownDomain = errors.New("unknown reconciliation domain")
	// ErrNoResult means no pass has been run for this user and domain since
	// the server started.
	ErrNoResult = errors.New("no reconciliation result available")
)

type reconServiceImpl struct {
	db      *sql.DB
	domains map[string]processors.Domain
	// results holds the latest pass per user and domain; a new upload
	// replaces the previous result wholesale. Summaries are folded once at
	// store time and cached next to the result.
	results *cache.Cache
	now     func() time.Time
}

func NewReconService(db *sql.DB, results *cache.Cache) ReconService {
	return &reconServiceImpl{
		db:      db,
		domains: processors.AllDomains(),
		results: results,
		now:     time.Now,
	}
}

func resultKey(userID int64, domain string) string {
	return fmt.Sprintf("recon:%d:%s", userID, domain)
}

func summaryKey(userID int64, domain string) string {
	return fmt.Sprintf("summary:%d:%s", userID, domain)
}

func (s *reconServiceImpl) domain(name string) (processors.Domain, error) {
	d, ok := s.domains[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, name)
	}
	return d, nil
}

func (s *reconServiceImpl) Process(userID int64, domainName string, files models.FileSet, unallocatedFund decimal.Decimal) (*models.ReconResult, error) {
	d, err := s.domain(domainName)
	if err != nil {
		return nil, err
	}

	started := s.now()
	result, err := d.Process(files, unallocatedFund)
	if err != nil {
		logger.L.Error("reconciliation pass failed",
			"domain", domainName, "userID", userID, "error", err)
		return nil, err
	}
	result.RunID = uuid.New().String()

	logger.L.Info("reconciliation pass complete",
		"domain", domainName, "userID", userID, "runID", result.RunID,
		"records", len(result.Records), "warnings", len(result.Warnings),
		"took", s.now().Sub(started).String())

	s.store(userID, result)
	s.audit(userID, result)
	return result, nil
}

// store replaces the cached result and its folded summary in one step so the
// two never disagree.
func (s *reconServiceImpl) store(userID int64, result *models.ReconResult) {
	s.results.Set(resultKey(userID, result.Domain), result, cache.NoExpiration)
	s.results.Set(summaryKey(userID, result.Domain), processors.Summarize(result), cache.NoExpiration)
}

// audit persists the pass metadata. Failure to write the audit row never
// fails the pass itself.
func (s *reconServiceImpl) audit(userID int64, result *models.ReconResult) {
	run := models.ReconRun{
		RunID:         result.RunID,
		Domain:        result.Domain,
		UserID:        userID,
		RecordCount:   len(result.Records),
		WarningCount:  len(result.Warnings),
		NetDifference: result.NetDifference.String(),
		CreatedAt:     s.now(),
	}
	if err := model.InsertReconRun(s.db, &run); err != nil {
		logger.L.Error("failed to record reconciliation run",
			"runID", result.RunID, "error", err)
	}
}

func (s *reconServiceImpl) Latest(userID int64, domainName string) (*models.ReconResult, error) {
	if _, err := s.domain(domainName); err != nil {
		return nil, err
	}
	cached, found := s.results.Get(resultKey(userID, domainName))
	if !found {
		return nil, ErrNoResult
	}
	return cached.(*models.ReconResult), nil
}

func (s *reconServiceImpl) Summary(userID int64, domainName string) (*models.ReconSummary, error) {
	if _, err := s.domain(domainName); err != nil {
		return nil, err
	}
	cached, found := s.results.Get(summaryKey(userID, domainName))
	if !found {
		return nil, ErrNoResult
	}
	return cached.(*models.ReconSummary), nil
}

func (s *reconServiceImpl) EditLedgerAmount(userID int64, domainName, clientKey string, amount decimal.Decimal) (*models.ReconResult, error) {
	d, err := s.domain(domainName)
	if err != nil {
		return nil, err
	}
	current, err := s.Latest(userID, domainName)
	if err != nil {
		return nil, err
	}

	next, err := d.Engine().ApplyLedgerEdit(current, clientKey, amount)
	if err != nil {
		return nil, err
	}
	next.RunID = current.RunID
	next.GeneratedAt = current.GeneratedAt

	logger.L.Info("ledger amount edited",
		"domain", domainName, "userID", userID, "client", clientKey, "amount", amount.String())
	s.store(userID, next)
	return next, nil
}

func (s *reconServiceImpl) SetUnallocatedFund(userID int64, domainName string, amount decimal.Decimal) (*models.ReconResult, error) {
	d, err := s.domain(domainName)
	if err != nil {
		return nil, err
	}
	current, err := s.Latest(userID, domainName)
	if err != nil {
		return nil, err
	}

	next := d.Engine().ApplyUnallocatedFund(current, amount)
	next.RunID = current.RunID
	next.GeneratedAt = current.GeneratedAt

	logger.L.Info("unallocated fund updated",
		"domain", domainName, "userID", userID, "amount", amount.String())
	s.store(userID, next)
	return next, nil
}

func (s *reconServiceImpl) Runs(userID int64, limit int) ([]models.ReconRun, error) {
	return model.GetReconRuns(s.db, userID, limit)
}

func (s *reconServiceImpl) UploadFile(userID int64, domainName string) (string, []byte, error) {
	d, result, err := s.domainAndResult(userID, domainName)
	if err != nil {
		return "", nil, err
	}
	name, data := export.BuildUploadFile(result, d.Engine().Config().Output, s.now())
	return name, data, nil
}

func (s *reconServiceImpl) LimitsFile(userID int64, domainName string) (string, []byte, error) {
	d, result, err := s.domainAndResult(userID, domainName)
	if err != nil {
		return "", nil, err
	}
	name, data := export.BuildLimitsFile(result, d.Engine().Config().Output, s.now())
	return name, data, nil
}

func (s *reconServiceImpl) Worksheet(userID int64, domainName string) (string, []byte, error) {
	d, result, err := s.domainAndResult(userID, domainName)
	if err != nil {
		return "", nil, err
	}
	return export.BuildWorksheet(result, d.Engine().Config().Output, s.now())
}

func (s *reconServiceImpl) domainAndResult(userID int64, domainName string) (processors.Domain, *models.ReconResult, error) {
	d, err := s.domain(domainName)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.Latest(userID, domainName)
	if err != nil {
		return nil, nil, err
	}
	return d, result, nil
}
