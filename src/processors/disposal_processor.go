package processors

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/ledger"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
	"github.com/username/cryptofolio/backend/src/utils"
)

// ErrOutOfOrderTransaction is returned when the feed violates its
// non-decreasing timestamp precondition. The engine rejects such input
// rather than re-sorting it: lot matching is only meaningful in true
// chronological order.
var ErrOutOfOrderTransaction = errors.New("transactions out of timestamp order")

// disposalProcessorImpl implements the DisposalProcessor interface.
type disposalProcessorImpl struct{}

// NewDisposalProcessor creates a new instance of DisposalProcessor.
func NewDisposalProcessor() DisposalProcessor {
	return &disposalProcessorImpl{}
}

// Process folds the timestamp-ordered transaction feed into a
// DisposalResult. Any failure (insufficient lots, malformed convert
// note, invalid record, out-of-order timestamp) aborts the whole run:
// a partially processed history would yield a silently wrong tax
// report.
func (p *disposalProcessorImpl) Process(transactions []models.Transaction) (*DisposalResult, error) {
	result := &DisposalResult{Ledger: ledger.New()}

	var prev time.Time
	for i, tx := range transactions {
		if tx.Timestamp.Before(prev) {
			return nil, fmt.Errorf("%w: transaction %d at %s precedes %s",
				ErrOutOfOrderTransaction, i,
				tx.Timestamp.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = tx.Timestamp

		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		if err := p.dispatch(result, tx); err != nil {
			return nil, fmt.Errorf("transaction %d (%s %s %s at %s): %w",
				i, tx.Type, tx.Quantity, tx.Asset,
				tx.Timestamp.Format(time.RFC3339), err)
		}
		result.Processed++
	}

	if logger.L != nil {
		logger.L.Info("disposal engine pass complete",
			"transactions", result.Processed,
			"disposals", len(result.Disposals),
			"income", len(result.Income))
	}
	return result, nil
}

func (p *disposalProcessorImpl) dispatch(result *DisposalResult, tx models.Transaction) error {
	switch tx.Type {
	case models.TypeBuy:
		// Fees are part of what the purchase cost, so they join the basis.
		cost := tx.Subtotal.Add(tx.Fees)
		result.Ledger.Acquire(tx.Asset, tx.Timestamp, tx.Quantity, utils.DivAt(cost, tx.Quantity))
		return nil

	case models.TypeReceive:
		// Received at fair market value; no income unless flagged as such.
		result.Ledger.Acquire(tx.Asset, tx.Timestamp, tx.Quantity, tx.SpotPrice)
		return nil

	case models.TypeRewardsIncome, models.TypeCoinbaseEarn:
		result.Ledger.Acquire(tx.Asset, tx.Timestamp, tx.Quantity, tx.SpotPrice)
		result.Income = append(result.Income, models.IncomeRecord{
			Asset:           tx.Asset,
			Quantity:        tx.Quantity,
			ReceivedAt:      tx.Timestamp,
			FairMarketValue: tx.SpotPrice.Mul(tx.Quantity),
			Source:          tx.Type,
		})
		return nil

	case models.TypeSell:
		proceeds := tx.Subtotal.Sub(tx.Fees)
		_, err := p.dispose(result, tx.Asset, tx.Timestamp, tx.Quantity, proceeds)
		return err

	case models.TypeSend, models.TypePaidForOrder:
		// Deemed a payment: disposal at fair market value.
		proceeds := tx.SpotPrice.Mul(tx.Quantity).Sub(tx.Fees)
		_, err := p.dispose(result, tx.Asset, tx.Timestamp, tx.Quantity, proceeds)
		return err

	case models.TypeConvert:
		return p.convert(result, tx)
	}
	return fmt.Errorf("%w: %v", models.ErrUnrecognizedTransactionType, tx.Type)
}

// dispose consumes quantity of asset and emits one DisposalRecord per
// lot portion touched, allocating proceeds pro rata by quantity. The
// final portion absorbs the division residual so the portions sum
// exactly to the transaction's proceeds. It returns the total net
// proceeds for callers that carry basis forward.
func (p *disposalProcessorImpl) dispose(result *DisposalResult, asset string, disposedAt time.Time, quantity, proceeds decimal.Decimal) (decimal.Decimal, error) {
	consumptions, err := result.Ledger.Consume(asset, disposedAt, quantity)
	if err != nil {
		return decimal.Zero, err
	}
	allocated := decimal.Zero
	for i, c := range consumptions {
		portionProceeds := utils.DivAt(proceeds.Mul(c.QuantityTaken), quantity)
		if i == len(consumptions)-1 {
			portionProceeds = proceeds.Sub(allocated)
		}
		allocated = allocated.Add(portionProceeds)
		basis := c.UnitCostBasis.Mul(c.QuantityTaken)
		result.Disposals = append(result.Disposals, models.DisposalRecord{
			Asset:            asset,
			QuantityDisposed: c.QuantityTaken,
			AcquiredAt:       c.AcquiredAt,
			DisposedAt:       disposedAt,
			Proceeds:         portionProceeds,
			Basis:            basis,
			GainOrLoss:       portionProceeds.Sub(basis),
			Term:             models.ClassifyTerm(c.AcquiredAt, disposedAt),
		})
	}
	return proceeds, nil
}

// convert disposes the source leg at the source asset's fair market
// value and acquires the destination leg with the net proceeds as its
// basis, so fiat basis carries over exactly across the conversion.
func (p *disposalProcessorImpl) convert(result *DisposalResult, tx models.Transaction) error {
	leg, err := models.ParseConvertNote(tx.Note)
	if err != nil {
		return err
	}
	gross := tx.SpotPrice.Mul(leg.FromQuantity)
	net := gross.Sub(tx.Fees)
	proceeds, err := p.dispose(result, leg.FromAsset, tx.Timestamp, leg.FromQuantity, net)
	if err != nil {
		return err
	}
	result.Ledger.Acquire(leg.ToAsset, tx.Timestamp, leg.ToQuantity, utils.DivAt(proceeds, leg.ToQuantity))
	return nil
}
