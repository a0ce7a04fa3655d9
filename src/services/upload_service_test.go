package services

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/cryptofolio/backend/src/database"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
	"github.com/username/cryptofolio/backend/src/processors"
	"github.com/username/cryptofolio/backend/src/utils"
)

func newTestService(t *testing.T) UploadService {
	t.Helper()
	logger.InitLogger("error")
	database.InitDB(filepath.Join(t.TempDir(), "cryptofolio_test.db"))
	return NewUploadService(processors.NewDisposalProcessor(), processors.NewReportProcessor(),
		cache.New(DefaultCacheExpiration, CacheCleanupInterval))
}

func TestTimestampStoreLayoutSortsChronologically(t *testing.T) {
	whole := time.Date(2022, 1, 5, 10, 0, 0, 0, time.UTC)
	subSecond := whole.Add(500 * time.Millisecond)

	// The stored form must compare like the times do.
	assert.Less(t, whole.Format(timestampStoreLayout), subSecond.Format(timestampStoreLayout))

	// And round-trip through the fetch path's parser.
	parsed, err := utils.ParseTimestamp(subSecond.Format(timestampStoreLayout))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(subSecond))
}

const subSecondExport = `Timestamp,Transaction Type,Asset,Quantity Transacted,Spot Price at Transaction,Subtotal,Total (inclusive of fees and/or spread),Fees and/or Spread,Notes
2022-01-05T10:00:00Z,Buy,BTC,1,"$10,000.00","$10,000.00","$10,000.00",$0.00,
2022-01-05T10:00:00.5Z,Sell,BTC,1,"$15,000.00","$15,000.00","$15,000.00",$0.00,
`

func TestProcessUploadSubSecondTimestamps(t *testing.T) {
	svc := newTestService(t)
	const userID = int64(1)

	result, err := svc.ProcessUpload(strings.NewReader(subSecondExport), userID, "coinbase")
	require.NoError(t, err)
	assert.Equal(t, 2, result.ImportedCount)
	assert.Equal(t, 0, result.SkippedCount)
	assert.True(t, result.Report.NetGain.Equal(decimal.RequireFromString("5000")))

	// The replayed history must come back in chronological order even
	// though only one of the two timestamps has a fractional part.
	txs, err := svc.GetTransactions(userID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TypeBuy, txs[0].Type)
	assert.Equal(t, models.TypeSell, txs[1].Type)
	assert.True(t, txs[1].Timestamp.After(txs[0].Timestamp))

	report, err := svc.GetTaxReport(userID, 0)
	require.NoError(t, err)
	require.Len(t, report.Disposals, 1)
	assert.True(t, report.Disposals[0].GainOrLoss.Equal(decimal.RequireFromString("5000")))
}

func TestProcessUploadDeduplicatesRepeatUpload(t *testing.T) {
	svc := newTestService(t)
	const userID = int64(1)

	first, err := svc.ProcessUpload(strings.NewReader(subSecondExport), userID, "coinbase")
	require.NoError(t, err)
	assert.Equal(t, 2, first.ImportedCount)

	second, err := svc.ProcessUpload(strings.NewReader(subSecondExport), userID, "coinbase")
	require.NoError(t, err)
	assert.Equal(t, 0, second.ImportedCount)
	assert.Equal(t, 2, second.SkippedCount)

	txs, err := svc.GetTransactions(userID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
