package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/utils"
)

// Lot is one acquisition still (partly) held: a quantity of an asset
// with the date and unit cost it was acquired at. Partial consumption
// reduces QuantityRemaining; AcquiredAt and UnitCostBasis never change
// after creation.
type Lot struct {
	Asset             string          `json:"asset"`
	AcquiredAt        time.Time       `json:"acquired_at"`
	QuantityRemaining decimal.Decimal `json:"quantity_remaining"`
	UnitCostBasis     decimal.Decimal `json:"unit_cost_basis"` // USD per unit, fixed at creation
}

// Consumption describes the portion taken from a single lot by one
// disposal: enough for the caller to compute basis and holding period
// for that portion. Values are copies; the lot itself stays owned by
// the ledger.
type Consumption struct {
	AcquiredAt    time.Time
	UnitCostBasis decimal.Decimal
	QuantityTaken decimal.Decimal
}

// InsufficientLotsError reports a disposal exceeding the tracked
// balance for an asset. It signals incomplete input history and is
// fatal for the run.
type InsufficientLotsError struct {
	Asset     string
	Timestamp time.Time
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient lots for %s at %s: requested %s, available %s",
		e.Asset, e.Timestamp.Format(time.RFC3339), e.Requested, e.Available)
}

// LotLedger holds one FIFO queue of open lots per asset, oldest first.
// It is the exclusive owner of its lots and is mutated only by the
// disposal engine; it is not safe for concurrent use.
type LotLedger struct {
	queues map[string][]*Lot
	seen   map[string]bool // every asset ever acquired, kept for the balances report
}

func New() *LotLedger {
	return &LotLedger{
		queues: make(map[string][]*Lot),
		seen:   make(map[string]bool),
	}
}

// Acquire appends a new lot to the tail of the asset's queue. The
// feed is timestamp-ordered, so appending preserves acquisition order.
func (l *LotLedger) Acquire(asset string, acquiredAt time.Time, quantity, unitCostBasis decimal.Decimal) {
	l.seen[asset] = true
	l.queues[asset] = append(l.queues[asset], &Lot{
		Asset:             asset,
		AcquiredAt:        acquiredAt,
		QuantityRemaining: quantity,
		UnitCostBasis:     unitCostBasis,
	})
}

// Consume takes quantity from the asset's queue head-first, splitting
// the front lot on a partial take and removing lots drained to exactly
// zero. It returns one Consumption per lot touched, in acquisition
// order. If quantity exceeds the asset's total remaining balance the
// ledger is left untouched and an *InsufficientLotsError is returned.
func (l *LotLedger) Consume(asset string, timestamp time.Time, quantity decimal.Decimal) ([]Consumption, error) {
	available := l.BalanceOf(asset)
	if quantity.Cmp(available) > 0 {
		return nil, &InsufficientLotsError{
			Asset:     asset,
			Timestamp: timestamp,
			Requested: quantity,
			Available: available,
		}
	}

	queue := l.queues[asset]
	remaining := quantity
	var consumptions []Consumption
	for remaining.IsPositive() {
		lot := queue[0]
		take := utils.MinDecimal(lot.QuantityRemaining, remaining)
		consumptions = append(consumptions, Consumption{
			AcquiredAt:    lot.AcquiredAt,
			UnitCostBasis: lot.UnitCostBasis,
			QuantityTaken: take,
		})
		lot.QuantityRemaining = lot.QuantityRemaining.Sub(take)
		remaining = remaining.Sub(take)
		if lot.QuantityRemaining.IsZero() {
			queue = queue[1:]
		}
	}
	l.queues[asset] = queue
	return consumptions, nil
}

// BalanceOf sums QuantityRemaining over the asset's open lots.
func (l *LotLedger) BalanceOf(asset string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.queues[asset] {
		total = total.Add(lot.QuantityRemaining)
	}
	return total
}

// Assets returns every asset code the ledger has ever acquired,
// sorted, including assets whose balance has returned to zero.
func (l *LotLedger) Assets() []string {
	assets := make([]string, 0, len(l.seen))
	for asset := range l.seen {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// OpenLots returns copies of the asset's open lots, oldest first.
func (l *LotLedger) OpenLots(asset string) []Lot {
	lots := make([]Lot, 0, len(l.queues[asset]))
	for _, lot := range l.queues[asset] {
		lots = append(lots, *lot)
	}
	return lots
}
