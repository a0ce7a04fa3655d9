package coinbase

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/cryptofolio/backend/src/models"
)

const sampleExport = `Transactions
User,someone@example.com
"You can use this transaction report to inform your likely tax obligations."

Timestamp,Transaction Type,Asset,Quantity Transacted,Spot Price at Transaction,Subtotal,Total (inclusive of fees and/or spread),Fees and/or Spread,Notes
2022-01-05T10:00:00Z,Buy,BTC,0.5,"$40,000.00","$20,000.00","$20,100.00",$100.00,Bought 0.5 BTC
2022-02-10T09:30:00Z,Rewards Income,ALGO,12.5,$0.80,$10.00,$10.00,$0.00,Received reward
2022-03-15T14:00:00Z,Convert,BTC,0.1,"$45,000.00","$4,500.00","$4,500.00",$0.00,Converted 0.1 BTC to 1.5 ETH
2022-06-01T08:00:00Z,Send,BTC,0.05,"$30,000.00",,,$0.00,Sent to cold wallet
`

func TestParseSampleExport(t *testing.T) {
	p := NewParser()
	txs, err := p.Parse(strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Len(t, txs, 4)

	buy := txs[0]
	assert.Equal(t, models.TypeBuy, buy.Type)
	assert.Equal(t, "BTC", buy.Asset)
	assert.True(t, buy.Quantity.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, buy.SpotPrice.Equal(decimal.RequireFromString("40000")))
	assert.True(t, buy.Subtotal.Equal(decimal.RequireFromString("20000")))
	assert.True(t, buy.Total.Equal(decimal.RequireFromString("20100")))
	assert.True(t, buy.Fees.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, "coinbase", buy.Source)
	assert.NotEmpty(t, buy.HashID)
	assert.Equal(t, 2022, buy.Timestamp.Year())

	reward := txs[1]
	assert.Equal(t, models.TypeRewardsIncome, reward.Type)
	assert.Equal(t, "ALGO", reward.Asset)

	convert := txs[2]
	assert.Equal(t, models.TypeConvert, convert.Type)
	leg, err := models.ParseConvertNote(convert.Note)
	require.NoError(t, err)
	assert.Equal(t, "ETH", leg.ToAsset)
}

func TestParseSendWithoutSubtotalFallsBackToSpot(t *testing.T) {
	p := NewParser()
	txs, err := p.Parse(strings.NewReader(sampleExport))
	require.NoError(t, err)

	send := txs[3]
	require.Equal(t, models.TypeSend, send.Type)
	// 0.05 * 30000
	assert.True(t, send.Subtotal.Equal(decimal.RequireFromString("1500")))
	assert.True(t, send.Total.Equal(decimal.RequireFromString("1500")))
}

func TestParseUnknownTypeFails(t *testing.T) {
	input := `Timestamp,Transaction Type,Asset,Quantity Transacted,Spot Price at Transaction,Subtotal,Total (inclusive of fees and/or spread),Fees and/or Spread,Notes
2022-01-05T10:00:00Z,Margin Trade,BTC,0.5,$40000,$20000,$20000,$0,
`
	p := NewParser()
	_, err := p.Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}

func TestParseMissingHeaderFails(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(strings.NewReader("just,some,random\ncsv,data,here\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestParseLegacyHeaderVariant(t *testing.T) {
	input := `Timestamp,Transaction Type,Asset,Quantity Transacted,USD Spot Price at Transaction,USD Subtotal,USD Total (inclusive of fees),USD Fees,Notes
2021-05-01T00:00:00Z,Buy,ETH,2,$2000,$4000,$4020,$20,Bought ETH
`
	p := NewParser()
	txs, err := p.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].SpotPrice.Equal(decimal.RequireFromString("2000")))
	assert.True(t, txs[0].Fees.Equal(decimal.RequireFromString("20")))
}
