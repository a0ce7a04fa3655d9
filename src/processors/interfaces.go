package processors

import (
	"github.com/username/cryptofolio/backend/src/ledger"
	"github.com/username/cryptofolio/backend/src/models"
)

// DisposalResult is everything one pass of the disposal engine
// produces: the full disposal and income histories plus the ledger of
// still-open lots.
type DisposalResult struct {
	Disposals []models.DisposalRecord
	Income    []models.IncomeRecord
	Ledger    *ledger.LotLedger
	Processed int
}

// DisposalProcessor defines the interface for the FIFO disposal engine.
type DisposalProcessor interface {
	Process(transactions []models.Transaction) (*DisposalResult, error)
}

// ReportProcessor defines the interface for assembling the tax report
// sections out of a DisposalResult.
type ReportProcessor interface {
	BuildReport(result *DisposalResult, year int) models.TaxReport
}
