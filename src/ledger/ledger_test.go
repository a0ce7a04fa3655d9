package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(n int) time.Time {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestConsumeFIFOOrder(t *testing.T) {
	l := New()
	l.Acquire("BTC", day(0), dec("1"), dec("10000"))
	l.Acquire("BTC", day(1), dec("1"), dec("20000"))

	consumptions, err := l.Consume("BTC", day(2), dec("1.5"))
	require.NoError(t, err)
	require.Len(t, consumptions, 2)

	assert.True(t, consumptions[0].AcquiredAt.Equal(day(0)))
	assert.True(t, consumptions[0].QuantityTaken.Equal(dec("1")))
	assert.True(t, consumptions[0].UnitCostBasis.Equal(dec("10000")))

	assert.True(t, consumptions[1].AcquiredAt.Equal(day(1)))
	assert.True(t, consumptions[1].QuantityTaken.Equal(dec("0.5")))
	assert.True(t, consumptions[1].UnitCostBasis.Equal(dec("20000")))

	assert.True(t, l.BalanceOf("BTC").Equal(dec("0.5")))
}

func TestConsumeExactQuantityRemovesLot(t *testing.T) {
	l := New()
	l.Acquire("ETH", day(0), dec("2"), dec("1500"))

	consumptions, err := l.Consume("ETH", day(1), dec("2"))
	require.NoError(t, err)
	require.Len(t, consumptions, 1)
	assert.True(t, consumptions[0].QuantityTaken.Equal(dec("2")))

	assert.Empty(t, l.OpenLots("ETH"))
	assert.True(t, l.BalanceOf("ETH").IsZero())
}

func TestConsumePartialSplitPreservesLotIdentity(t *testing.T) {
	l := New()
	l.Acquire("BTC", day(0), dec("1"), dec("10000"))

	_, err := l.Consume("BTC", day(10), dec("0.4"))
	require.NoError(t, err)

	lots := l.OpenLots("BTC")
	require.Len(t, lots, 1)
	assert.True(t, lots[0].AcquiredAt.Equal(day(0)), "acquisition date must survive a split")
	assert.True(t, lots[0].UnitCostBasis.Equal(dec("10000")), "unit cost basis must survive a split")
	assert.True(t, lots[0].QuantityRemaining.Equal(dec("0.6")))
}

func TestConsumeInsufficientLeavesLedgerUntouched(t *testing.T) {
	l := New()
	l.Acquire("BTC", day(0), dec("0.3"), dec("10000"))
	l.Acquire("BTC", day(1), dec("0.2"), dec("20000"))

	consumptions, err := l.Consume("BTC", day(2), dec("0.6"))
	require.Error(t, err)
	assert.Nil(t, consumptions)

	var insufficientErr *InsufficientLotsError
	require.True(t, errors.As(err, &insufficientErr))
	assert.Equal(t, "BTC", insufficientErr.Asset)
	assert.True(t, insufficientErr.Requested.Equal(dec("0.6")))
	assert.True(t, insufficientErr.Available.Equal(dec("0.5")))

	// No partial consumption happened.
	lots := l.OpenLots("BTC")
	require.Len(t, lots, 2)
	assert.True(t, lots[0].QuantityRemaining.Equal(dec("0.3")))
	assert.True(t, lots[1].QuantityRemaining.Equal(dec("0.2")))
}

func TestConsumeUnknownAsset(t *testing.T) {
	l := New()

	_, err := l.Consume("DOGE", day(0), dec("1"))
	var insufficientErr *InsufficientLotsError
	require.True(t, errors.As(err, &insufficientErr))
	assert.True(t, insufficientErr.Available.IsZero())
}

func TestAssetsIncludesDrainedAssets(t *testing.T) {
	l := New()
	l.Acquire("ETH", day(0), dec("1"), dec("1500"))
	l.Acquire("BTC", day(1), dec("1"), dec("10000"))

	_, err := l.Consume("ETH", day(2), dec("1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "ETH"}, l.Assets())
	assert.True(t, l.BalanceOf("ETH").IsZero())
}

func TestOpenLotsReturnsCopies(t *testing.T) {
	l := New()
	l.Acquire("BTC", day(0), dec("1"), dec("10000"))

	lots := l.OpenLots("BTC")
	lots[0].QuantityRemaining = dec("999")

	assert.True(t, l.BalanceOf("BTC").Equal(dec("1")))
}

func TestBalanceConservation(t *testing.T) {
	l := New()
	l.Acquire("BTC", day(0), dec("0.7"), dec("10000"))
	l.Acquire("BTC", day(1), dec("0.3"), dec("20000"))

	consumptions, err := l.Consume("BTC", day(2), dec("0.85"))
	require.NoError(t, err)

	taken := decimal.Zero
	for _, c := range consumptions {
		taken = taken.Add(c.QuantityTaken)
	}
	assert.True(t, taken.Equal(dec("0.85")))
	assert.True(t, taken.Add(l.BalanceOf("BTC")).Equal(dec("1")))
}
