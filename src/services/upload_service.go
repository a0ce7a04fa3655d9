package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/cryptofolio/backend/src/database"
	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
	"github.com/username/cryptofolio/backend/src/parsers"
	"github.com/username/cryptofolio/backend/src/processors"
	"github.com/username/cryptofolio/backend/src/utils"
)

const (
	// Long-lived cache for the engine pass over a user's full history.
	ckDisposalResult = "res_disposal_result_user_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute

	// timestampStoreLayout is fixed-width (always nine fractional
	// digits, always UTC) so lexicographic order on the stored column
	// is chronological, sub-second values included. Variable-width
	// formats break this: "10:00:00.5Z" sorts before "10:00:00Z".
	timestampStoreLayout = "2006-01-02T15:04:05.000000000Z"
)

type uploadServiceImpl struct {
	disposalProcessor processors.DisposalProcessor
	reportProcessor   processors.ReportProcessor
	reportCache       *cache.Cache
}

func NewUploadService(
	disposalProcessor processors.DisposalProcessor,
	reportProcessor processors.ReportProcessor,
	reportCache *cache.Cache,
) UploadService {
	return &uploadServiceImpl{
		disposalProcessor: disposalProcessor,
		reportProcessor:   reportProcessor,
		reportCache:       reportCache,
	}
}

func (s *uploadServiceImpl) ProcessUpload(fileReader io.Reader, userID int64, source string) (*UploadResult, error) {
	overallStartTime := time.Now()
	logger.L.Info("ProcessUpload START", "userID", userID, "source", source)

	parser, err := parsers.GetParser(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	txs, err := parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if len(txs) == 0 {
		return nil, fmt.Errorf("%w: no transactions found in file", ErrParsingFailed)
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO transactions (user_id, timestamp, type, asset, quantity, spot_price, subtotal, total, fees, note, source, hash_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	imported, skipped := 0, 0
	for _, tx := range txs {
		_, err := stmt.Exec(userID, tx.Timestamp.UTC().Format(timestampStoreLayout), tx.Type.String(),
			tx.Asset, tx.Quantity.String(), tx.SpotPrice.String(), tx.Subtotal.String(),
			tx.Total.String(), tx.Fees.String(), tx.Note, tx.Source, tx.HashID)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate transaction on upload", "userID", userID, "hash_id", tx.HashID)
				skipped++
				continue
			}
			return nil, fmt.Errorf("error inserting transaction (%s %s at %s): %w",
				tx.Type, tx.Asset, tx.Timestamp.Format(time.RFC3339), err)
		}
		imported++
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transactions: %w", err)
	}

	// The next report request recomputes the ledger from full history.
	s.InvalidateUserCache(userID)

	report, err := s.GetTaxReport(userID, 0)
	if err != nil {
		return nil, err
	}

	logger.L.Info("ProcessUpload END", "userID", userID, "imported", imported, "skipped", skipped, "duration", time.Since(overallStartTime))
	return &UploadResult{
		ImportedCount: imported,
		SkippedCount:  skipped,
		Report:        *report,
	}, nil
}

// InvalidateUserCache clears all cached data for a user, forcing a
// complete rebuild on the next request.
func (s *uploadServiceImpl) InvalidateUserCache(userID int64) {
	s.reportCache.Delete(fmt.Sprintf(ckDisposalResult, userID))
	logger.L.Info("Invalidated caches for user", "userID", userID)
}

// getDisposalResult is the central function: one engine pass over the
// user's full stored history, cached until the next upload or delete.
func (s *uploadServiceImpl) getDisposalResult(userID int64) (*processors.DisposalResult, error) {
	cacheKey := fmt.Sprintf(ckDisposalResult, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for disposal result", "userID", userID)
		return cached.(*processors.DisposalResult), nil
	}

	logger.L.Info("Cache miss for disposal result, recalculating from DB", "userID", userID)
	transactions, err := fetchUserTransactions(userID)
	if err != nil {
		return nil, err
	}

	result, err := s.disposalProcessor.Process(transactions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	s.reportCache.Set(cacheKey, result, cache.NoExpiration)
	logger.L.Info("Populated disposal result cache from DB", "userID", userID, "transactionCount", len(transactions))
	return result, nil
}

func (s *uploadServiceImpl) GetTaxReport(userID int64, year int) (*models.TaxReport, error) {
	result, err := s.getDisposalResult(userID)
	if err != nil {
		return nil, err
	}
	report := s.reportProcessor.BuildReport(result, year)
	return &report, nil
}

func (s *uploadServiceImpl) GetBalances(userID int64) ([]models.AssetBalance, error) {
	report, err := s.GetTaxReport(userID, 0)
	if err != nil {
		return nil, err
	}
	return report.Balances, nil
}

func (s *uploadServiceImpl) GetDisposals(userID int64, year int) ([]models.DisposalRecord, error) {
	report, err := s.GetTaxReport(userID, year)
	if err != nil {
		return nil, err
	}
	return report.Disposals, nil
}

func (s *uploadServiceImpl) GetIncome(userID int64, year int) ([]models.IncomeRecord, error) {
	report, err := s.GetTaxReport(userID, year)
	if err != nil {
		return nil, err
	}
	return report.Income, nil
}

func (s *uploadServiceImpl) GetTransactions(userID int64) ([]models.Transaction, error) {
	return fetchUserTransactions(userID)
}

func (s *uploadServiceImpl) DeleteAllTransactions(userID int64) error {
	_, err := database.DB.Exec(`DELETE FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("error deleting transactions for userID %d: %w", userID, err)
	}
	s.InvalidateUserCache(userID)
	return nil
}

func (s *uploadServiceImpl) HasData(userID int64) (bool, error) {
	var count int
	err := database.DB.QueryRow(`SELECT COUNT(1) FROM transactions WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error counting transactions for userID %d: %w", userID, err)
	}
	return count > 0, nil
}

// fetchUserTransactions loads the user's stored history in engine
// order: ascending timestamp, insert order for ties. Timestamps are
// stored in the fixed-width timestampStoreLayout so the ORDER BY on
// the TEXT column yields chronological order.
func fetchUserTransactions(userID int64) ([]models.Transaction, error) {
	logger.L.Debug("Fetching transactions from DB", "userID", userID)
	rows, err := database.DB.Query(`SELECT id, timestamp, type, asset, quantity, spot_price, subtotal, total, fees, note, source, hash_id FROM transactions WHERE user_id = ? ORDER BY timestamp ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for userID %d: %w", userID, err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		tx, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("error scanning transaction row for userID %d: %w", userID, scanErr)
		}
		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows for userID %d: %w", userID, err)
	}
	logger.L.Info("DB fetch complete.", "userID", userID, "transactionCount", len(transactions))
	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var tx models.Transaction
	var timestampStr, typeStr string
	var quantityStr, spotStr, subtotalStr, totalStr, feesStr string
	if err := row.Scan(&tx.ID, &timestampStr, &typeStr, &tx.Asset, &quantityStr,
		&spotStr, &subtotalStr, &totalStr, &feesStr, &tx.Note, &tx.Source, &tx.HashID); err != nil {
		return models.Transaction{}, err
	}

	timestamp, err := utils.ParseTimestamp(timestampStr)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.Timestamp = timestamp

	txType, err := models.ParseTransactionType(typeStr)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.Type = txType

	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&tx.Quantity, quantityStr},
		{&tx.SpotPrice, spotStr},
		{&tx.Subtotal, subtotalStr},
		{&tx.Total, totalStr},
		{&tx.Fees, feesStr},
	} {
		d, err := decimal.NewFromString(field.src)
		if err != nil {
			return models.Transaction{}, fmt.Errorf("invalid stored decimal %q: %w", field.src, err)
		}
		*field.dst = d
	}
	return tx, nil
}
