// Package processors implements the reconciliation engine: key-indexed
// aggregation of allocation feeds, the generic ledger-vs-allocation join with
// per-domain classification rules, and the dashboard summary fold. Each
// business domain (mcx, nsecm, nsefo, payout, segregation, intersegment)
// instantiates the same engine with its own constants.
package processors

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
)

var (
	// ErrMissingInput means a file the domain requires was not uploaded at
	// all. Raised before any parsing begins; the error names the file.
	ErrMissingInput = errors.New("required input file missing")

	// ErrFilenameMismatch means an uploaded file's name does not carry the
	// expected date stamp. Only the nsefo allocation feed enforces this.
	ErrFilenameMismatch = errors.New("uploaded filename does not match the expected pattern")

	// ErrUnknownClient is returned by recompute operations for a client key
	// absent from the current record set.
	ErrUnknownClient = errors.New("no reconciled record for client")
)

func missingInput(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingInput, field)
}

// Domain is one reconciliation business domain. Process is a pure function of
// the uploaded file set: it never keeps state between passes.
type Domain interface {
	Name() string
	Engine() *Engine
	Process(files models.FileSet, unallocatedFund decimal.Decimal) (*models.ReconResult, error)
}

// AllDomains returns the registered domain processors keyed by name.
func AllDomains() map[string]Domain {
	domains := []Domain{
		NewMCXDomain(),
		NewNSECMDomain(),
		NewNSEFODomain(),
		NewPayoutDomain(),
		NewSegregationDomain(),
		NewIntersegmentDomain(),
	}
	byName := make(map[string]Domain, len(domains))
	for _, d := range domains {
		byName[d.Name()] = d
	}
	return byName
}

// runConcurrently fans the per-file decode steps out and waits for all of
// them; results are only combined after every read finished.
func runConcurrently(tasks ...func() error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(tasks))
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task func() error) {
			defer wg.Done()
			errs[i] = task()
		}(i, task)
	}
	wg.Wait()
	return errors.Join(errs...)
}
