package processors

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/models"
)

// reportProcessorImpl implements the ReportProcessor interface.
type reportProcessorImpl struct{}

// NewReportProcessor creates a new instance of ReportProcessor.
func NewReportProcessor() ReportProcessor {
	return &reportProcessorImpl{}
}

// BuildReport groups a DisposalResult into the three report sections.
// Disposals and income are restricted to the requested tax year
// (year 0 selects all years); balances always reflect the full
// history, since holdings do not reset at year boundaries.
func (p *reportProcessorImpl) BuildReport(result *DisposalResult, year int) models.TaxReport {
	report := models.TaxReport{
		Year:           year,
		Balances:       []models.AssetBalance{},
		Disposals:      []models.DisposalRecord{},
		Income:         []models.IncomeRecord{},
		ShortTermGain:  decimal.Zero,
		LongTermGain:   decimal.Zero,
		NetGain:        decimal.Zero,
		TotalIncome:    decimal.Zero,
		TransactionCnt: result.Processed,
	}

	for _, asset := range result.Ledger.Assets() {
		report.Balances = append(report.Balances, models.AssetBalance{
			Asset:   asset,
			Balance: result.Ledger.BalanceOf(asset),
		})
	}

	for _, d := range result.Disposals {
		if year != 0 && d.DisposedAt.Year() != year {
			continue
		}
		report.Disposals = append(report.Disposals, d)
		if d.Term == models.LongTerm {
			report.LongTermGain = report.LongTermGain.Add(d.GainOrLoss)
		} else {
			report.ShortTermGain = report.ShortTermGain.Add(d.GainOrLoss)
		}
	}
	report.NetGain = report.ShortTermGain.Add(report.LongTermGain)

	for _, inc := range result.Income {
		if year != 0 && inc.ReceivedAt.Year() != year {
			continue
		}
		report.Income = append(report.Income, inc)
		report.TotalIncome = report.TotalIncome.Add(inc.FairMarketValue)
	}

	// Stable presentation order: timestamp, then asset for ties.
	sort.SliceStable(report.Disposals, func(i, j int) bool {
		a, b := report.Disposals[i], report.Disposals[j]
		if !a.DisposedAt.Equal(b.DisposedAt) {
			return a.DisposedAt.Before(b.DisposedAt)
		}
		return a.Asset < b.Asset
	})
	sort.SliceStable(report.Income, func(i, j int) bool {
		a, b := report.Income[i], report.Income[j]
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return a.Asset < b.Asset
	})

	return report
}
