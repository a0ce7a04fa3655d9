package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/cryptofolio/backend/src/models"
)

func sampleResult(t *testing.T) *DisposalResult {
	t.Helper()
	p := NewDisposalProcessor()
	result, err := p.Process([]models.Transaction{
		buy(time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), "BTC", "2", "20000", "0"),
		{
			Timestamp: time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC),
			Type:      models.TypeRewardsIncome,
			Asset:     "ALGO",
			Quantity:  dec("100"),
			SpotPrice: dec("0.3"),
		},
		sell(time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC), "BTC", "0.5", "10000", "0"),
		{
			Timestamp: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			Type:      models.TypeRewardsIncome,
			Asset:     "ALGO",
			Quantity:  dec("50"),
			SpotPrice: dec("0.2"),
		},
		sell(time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), "BTC", "0.5", "15000", "0"),
	})
	require.NoError(t, err)
	return result
}

func TestBuildReportAllYears(t *testing.T) {
	rp := NewReportProcessor()
	report := rp.BuildReport(sampleResult(t), 0)

	assert.Equal(t, 0, report.Year)
	assert.Len(t, report.Disposals, 2)
	assert.Len(t, report.Income, 2)
	assert.Equal(t, 5, report.TransactionCnt)

	// 2022 sale: proceeds 10000, basis 5000 -> +5000 short.
	// 2023 sale: proceeds 15000, basis 5000 -> +10000 long.
	assert.True(t, report.ShortTermGain.Equal(dec("5000")))
	assert.True(t, report.LongTermGain.Equal(dec("10000")))
	assert.True(t, report.NetGain.Equal(dec("15000")))
	assert.True(t, report.TotalIncome.Equal(dec("40")))
}

func TestBuildReportYearFilter(t *testing.T) {
	rp := NewReportProcessor()
	report := rp.BuildReport(sampleResult(t), 2022)

	require.Len(t, report.Disposals, 1)
	assert.Equal(t, 2022, report.Disposals[0].DisposedAt.Year())
	require.Len(t, report.Income, 1)
	assert.Equal(t, 2022, report.Income[0].ReceivedAt.Year())

	assert.True(t, report.ShortTermGain.Equal(dec("5000")))
	assert.True(t, report.LongTermGain.IsZero())
	assert.True(t, report.TotalIncome.Equal(dec("30")))
}

func TestBuildReportBalancesIgnoreYearFilter(t *testing.T) {
	rp := NewReportProcessor()
	full := rp.BuildReport(sampleResult(t), 0)
	filtered := rp.BuildReport(sampleResult(t), 2022)

	// Holdings do not reset at year boundaries.
	assert.Equal(t, full.Balances, filtered.Balances)

	require.Len(t, filtered.Balances, 2)
	assert.Equal(t, "ALGO", filtered.Balances[0].Asset)
	assert.True(t, filtered.Balances[0].Balance.Equal(dec("150")))
	assert.Equal(t, "BTC", filtered.Balances[1].Asset)
	assert.True(t, filtered.Balances[1].Balance.Equal(dec("1")))
}

func TestBuildReportEmptyYear(t *testing.T) {
	rp := NewReportProcessor()
	report := rp.BuildReport(sampleResult(t), 2019)

	assert.Empty(t, report.Disposals)
	assert.Empty(t, report.Income)
	assert.True(t, report.NetGain.IsZero())
	assert.True(t, report.TotalIncome.IsZero())
	assert.NotEmpty(t, report.Balances)
}

func TestBuildReportDisposalsSorted(t *testing.T) {
	rp := NewReportProcessor()
	report := rp.BuildReport(sampleResult(t), 0)

	for i := 1; i < len(report.Disposals); i++ {
		prev, cur := report.Disposals[i-1], report.Disposals[i]
		assert.False(t, cur.DisposedAt.Before(prev.DisposedAt))
	}
	for i := 1; i < len(report.Income); i++ {
		prev, cur := report.Income[i-1], report.Income[i]
		assert.False(t, cur.ReceivedAt.Before(prev.ReceivedAt))
	}
}
