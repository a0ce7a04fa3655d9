package services

import (
	"errors"
	"io"

	"github.com/username/cryptofolio/backend/src/models"
)

var (
	// ErrParsingFailed wraps CSV/format errors from the parsers.
	ErrParsingFailed = errors.New("parsing failed")
	// ErrProcessingFailed wraps disposal-engine errors: insufficient
	// lots, malformed convert notes, out-of-order history. The stored
	// transactions are still intact; the report is simply not
	// computable from them.
	ErrProcessingFailed = errors.New("processing failed")
)

// UploadResult summarizes one upload: how many rows were imported,
// how many were duplicates of already-stored rows, and the
// full-history tax report recomputed afterwards.
type UploadResult struct {
	ImportedCount int              `json:"imported_count"`
	SkippedCount  int              `json:"skipped_count"`
	Report        models.TaxReport `json:"report"`
}

// UploadService defines the interface for the core upload and report
// logic.
type UploadService interface {
	ProcessUpload(fileReader io.Reader, userID int64, source string) (*UploadResult, error)
	GetTaxReport(userID int64, year int) (*models.TaxReport, error)
	GetBalances(userID int64) ([]models.AssetBalance, error)
	GetDisposals(userID int64, year int) ([]models.DisposalRecord, error)
	GetIncome(userID int64, year int) ([]models.IncomeRecord, error)
	GetTransactions(userID int64) ([]models.Transaction, error)
	DeleteAllTransactions(userID int64) error
	HasData(userID int64) (bool, error)
	InvalidateUserCache(userID int64)
}
