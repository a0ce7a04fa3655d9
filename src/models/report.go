package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingTerm classifies a disposal for capital-gains treatment.
type HoldingTerm int

const (
	ShortTerm HoldingTerm = iota
	LongTerm
)

func (h HoldingTerm) String() string {
	if h == LongTerm {
		return "long"
	}
	return "short"
}

func (h HoldingTerm) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// longTermHoldingDays is the documented boundary: a disposal is
// long-term when the lot was held strictly more than 365 days.
// Exactly 365 days is short-term.
const longTermHoldingDays = 365

// ClassifyTerm applies the holding-period boundary rule.
func ClassifyTerm(acquiredAt, disposedAt time.Time) HoldingTerm {
	if disposedAt.Sub(acquiredAt) > longTermHoldingDays*24*time.Hour {
		return LongTerm
	}
	return ShortTerm
}

// DisposalRecord is one row of the "Sales and Other Dispositions"
// section: the portion of a single acquisition lot consumed by a
// single disposing transaction. A disposal spanning several lots
// yields one record per lot touched.
type DisposalRecord struct {
	Asset            string          `json:"asset"`
	QuantityDisposed decimal.Decimal `json:"quantity_disposed"`
	AcquiredAt       time.Time       `json:"acquired_at"`
	DisposedAt       time.Time       `json:"disposed_at"`
	Proceeds         decimal.Decimal `json:"proceeds"`
	Basis            decimal.Decimal `json:"basis"`
	GainOrLoss       decimal.Decimal `json:"gain_or_loss"`
	Term             HoldingTerm     `json:"term"`
}

// IncomeRecord is one row of the "Other income" section: an asset
// received as income, valued at fair market value on receipt.
type IncomeRecord struct {
	Asset           string          `json:"asset"`
	Quantity        decimal.Decimal `json:"quantity"`
	ReceivedAt      time.Time       `json:"received_at"`
	FairMarketValue decimal.Decimal `json:"fair_market_value"`
	Source          TransactionType `json:"source"` // rewards_income or coinbase_earn
}

// AssetBalance is one asset's ending position after replaying the
// full transaction history.
type AssetBalance struct {
	Asset   string          `json:"asset"`
	Balance decimal.Decimal `json:"balance"`
}

// TaxReport bundles the three output sections. Disposals and Income
// are restricted to the requested year (0 = all years); Balances
// always reflect the full history.
type TaxReport struct {
	Year           int              `json:"year"`
	Balances       []AssetBalance   `json:"balances"`
	Disposals      []DisposalRecord `json:"disposals"`
	Income         []IncomeRecord   `json:"income"`
	ShortTermGain  decimal.Decimal  `json:"short_term_gain"`
	LongTermGain   decimal.Decimal  `json:"long_term_gain"`
	NetGain        decimal.Decimal  `json:"net_gain"`
	TotalIncome    decimal.Decimal  `json:"total_income"`
	TransactionCnt int              `json:"transaction_count"`
}
