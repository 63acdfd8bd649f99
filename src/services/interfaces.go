package services

import (
	"github.com/shopspring/decimal"
	"github.com/username/fundrecon/backend/src/models"
)

// ReconService owns the per-user, per-domain reconciliation state: running a
// pass over uploaded files, serving the latest result, applying inline
// recomputes and rendering the downloadable files.
type ReconService interface {
	Process(userID int64, domain string, files models.FileSet, unallocatedFund decimal.Decimal) (*models.ReconResult, error)
	Latest(userID int64, domain string) (*models.ReconResult, error)
	Summary(userID int64, domain string) (*models.ReconSummary, error)
	EditLedgerAmount(userID int64, domain, clientKey string, amount decimal.Decimal) (*models.ReconResult, error)
	SetUnallocatedFund(userID int64, domain string, amount decimal.Decimal) (*models.ReconResult, error)
	Runs(userID int64, limit int) ([]models.ReconRun, error)
	UploadFile(userID int64, domain string) (string, []byte, error)
	LimitsFile(userID int64, domain string) (string, []byte, error)
	Worksheet(userID int64, domain string) (string, []byte, error)
}

// EmailService sends the account lifecycle emails.
type EmailService interface {
	SendVerificationEmail(toEmail, username, token string) error
	SendPasswordResetEmail(toEmail, username, token string) error
}
