package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		label    string
		expected TransactionType
	}{
		{"Buy", TypeBuy},
		{"Advanced Trade Buy", TypeBuy},
		{"Sell", TypeSell},
		{"advanced trade sell", TypeSell},
		{"Convert", TypeConvert},
		{"Send", TypeSend},
		{"Receive", TypeReceive},
		{"Rewards Income", TypeRewardsIncome},
		{"rewards_income", TypeRewardsIncome},
		{"Staking Income", TypeRewardsIncome},
		{"Coinbase Earn", TypeCoinbaseEarn},
		{"Learning Reward", TypeCoinbaseEarn},
		{"Paid for an order", TypePaidForOrder},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseTransactionType(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseTransactionTypeUnknown(t *testing.T) {
	_, err := ParseTransactionType("Margin Trade")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnrecognizedTransactionType))
}

func TestTransactionTypeRoundtrip(t *testing.T) {
	// The String form of every type must parse back to itself, since
	// it is what gets persisted.
	for _, typ := range []TransactionType{
		TypeBuy, TypeSell, TypeConvert, TypeSend,
		TypeReceive, TypeRewardsIncome, TypeCoinbaseEarn, TypePaidForOrder,
	} {
		parsed, err := ParseTransactionType(typ.String())
		require.NoError(t, err, "type %s", typ)
		assert.Equal(t, typ, parsed)
	}
}

func TestTransactionTypeTaxonomy(t *testing.T) {
	all := []TransactionType{
		TypeBuy, TypeSell, TypeConvert, TypeSend,
		TypeReceive, TypeRewardsIncome, TypeCoinbaseEarn, TypePaidForOrder,
	}
	for _, typ := range all {
		// Convert is dispatched on both legs and is neither.
		if typ == TypeConvert {
			assert.False(t, typ.IsAcquisition())
			assert.False(t, typ.IsDisposal())
			continue
		}
		assert.NotEqual(t, typ.IsAcquisition(), typ.IsDisposal(),
			"%s must be exactly one of acquisition/disposal", typ)
	}

	assert.True(t, TypeRewardsIncome.IsIncome())
	assert.True(t, TypeCoinbaseEarn.IsIncome())
	assert.False(t, TypeReceive.IsIncome())
	for _, typ := range all {
		if typ.IsIncome() {
			assert.True(t, typ.IsAcquisition(), "income types also open a lot")
		}
	}
}

func TestParseConvertNote(t *testing.T) {
	leg, err := ParseConvertNote("Converted 0.5 BTC to 8.25 ETH")
	require.NoError(t, err)
	assert.True(t, leg.FromQuantity.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, "BTC", leg.FromAsset)
	assert.True(t, leg.ToQuantity.Equal(decimal.RequireFromString("8.25")))
	assert.Equal(t, "ETH", leg.ToAsset)
}

func TestParseConvertNoteThousandsSeparators(t *testing.T) {
	leg, err := ParseConvertNote("Converted 1,000 USDC to 0.03 BTC")
	require.NoError(t, err)
	assert.True(t, leg.FromQuantity.Equal(decimal.RequireFromString("1000")))
	assert.Equal(t, "USDC", leg.FromAsset)
}

func TestParseConvertNoteMalformed(t *testing.T) {
	for _, note := range []string{
		"",
		"sold everything",
		"Converted BTC to ETH",
		"Converted 0.5 BTC to 8 ETH and Converted 1 ETH to 100 ALGO",
	} {
		_, err := ParseConvertNote(note)
		require.Error(t, err, "note %q", note)
		assert.True(t, errors.Is(err, ErrMalformedConvertNote))
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Timestamp: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Type:      TypeBuy,
		Asset:     "BTC",
		Quantity:  decimal.RequireFromString("1"),
	}
	require.NoError(t, valid.Validate())

	zeroTime := valid
	zeroTime.Timestamp = time.Time{}
	assert.Error(t, zeroTime.Validate())

	noAsset := valid
	noAsset.Asset = ""
	assert.Error(t, noAsset.Validate())

	zeroQty := valid
	zeroQty.Quantity = decimal.Zero
	assert.Error(t, zeroQty.Validate())

	negFees := valid
	negFees.Fees = decimal.RequireFromString("-1")
	assert.Error(t, negFees.Validate())

	badConvert := valid
	badConvert.Type = TypeConvert
	badConvert.Note = "no pair here"
	assert.Error(t, badConvert.Validate())
}

func TestComputeHashIDStable(t *testing.T) {
	tx := Transaction{
		Timestamp: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Type:      TypeBuy,
		Asset:     "BTC",
		Quantity:  decimal.RequireFromString("1"),
		Subtotal:  decimal.RequireFromString("10000"),
	}
	assert.Equal(t, tx.ComputeHashID(), tx.ComputeHashID())

	other := tx
	other.Quantity = decimal.RequireFromString("2")
	assert.NotEqual(t, tx.ComputeHashID(), other.ComputeHashID())
}
