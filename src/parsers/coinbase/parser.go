package coinbase

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/username/cryptofolio/backend/src/models"
	"github.com/username/cryptofolio/backend/src/security/validation"
	"github.com/username/cryptofolio/backend/src/utils"
)

// Coinbase exports carry a few metadata lines ("Transactions",
// account name, a blank line) before the real header row, which
// always starts with "Timestamp".
const headerFirstColumn = "timestamp"

type CoinbaseParser struct{}

func NewParser() *CoinbaseParser {
	return &CoinbaseParser{}
}

func (p *CoinbaseParser) Parse(file io.Reader) ([]models.Transaction, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := skipToHeader(reader)
	if err != nil {
		return nil, err
	}
	cols := indexColumns(header)
	for _, required := range []string{"timestamp", "transaction type", "asset", "quantity transacted"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("coinbase export header missing %q column", required)
		}
	}

	var txs []models.Transaction
	rowNum := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		rowNum++
		if isBlank(record) {
			continue
		}
		tx, err := p.parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (p *CoinbaseParser) parseRow(record []string, cols map[string]int) (models.Transaction, error) {
	field := func(name string) string {
		if idx, ok := cols[name]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	timestamp, err := utils.ParseTimestamp(field("timestamp"))
	if err != nil {
		return models.Transaction{}, err
	}
	txType, err := models.ParseTransactionType(field("transaction type"))
	if err != nil {
		return models.Transaction{}, err
	}
	quantity, err := utils.ParseDecimal(field("quantity transacted"))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("quantity: %w", err)
	}
	spotPrice, err := utils.ParseDecimal(field("spot price at transaction"))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("spot price: %w", err)
	}
	subtotal, err := utils.ParseDecimal(field("subtotal"))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("subtotal: %w", err)
	}
	total, err := utils.ParseDecimal(field("total (inclusive of fees and/or spread)"))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("total: %w", err)
	}
	fees, err := utils.ParseDecimal(field("fees and/or spread"))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("fees: %w", err)
	}

	// Rows without an explicit subtotal (sends, receives, rewards)
	// still get a deterministic fiat value from the spot price.
	if subtotal.IsZero() && !spotPrice.IsZero() {
		subtotal = spotPrice.Mul(quantity)
	}
	if total.IsZero() {
		total = subtotal.Add(fees)
	}

	tx := models.Transaction{
		Timestamp: timestamp,
		Type:      txType,
		Asset:     strings.ToUpper(field("asset")),
		Quantity:  quantity,
		SpotPrice: spotPrice,
		Subtotal:  subtotal,
		Total:     total,
		Fees:      fees,
		Note:      sanitizeNote(field("notes")),
		Source:    "coinbase",
	}
	tx.HashID = tx.ComputeHashID()
	if err := tx.Validate(); err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

// skipToHeader discards export preamble lines until it finds the
// header row. Everything before it is account metadata, not data.
func skipToHeader(reader *csv.Reader) ([]string, error) {
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("no header row found in coinbase export")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV while locating header: %w", err)
		}
		if len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), headerFirstColumn) {
			return record, nil
		}
	}
}

// indexColumns maps lowercased header names to positions, folding the
// format variants Coinbase has shipped over the years onto canonical
// names.
func indexColumns(header []string) map[string]int {
	aliases := map[string]string{
		"timestamp":                               "timestamp",
		"transaction type":                        "transaction type",
		"asset":                                   "asset",
		"quantity transacted":                     "quantity transacted",
		"spot price at transaction":               "spot price at transaction",
		"usd spot price at transaction":           "spot price at transaction",
		"spot price currency":                     "spot price currency",
		"subtotal":                                "subtotal",
		"usd subtotal":                            "subtotal",
		"total (inclusive of fees and/or spread)": "total (inclusive of fees and/or spread)",
		"total (inclusive of fees)":               "total (inclusive of fees and/or spread)",
		"usd total (inclusive of fees)":           "total (inclusive of fees and/or spread)",
		"fees and/or spread":                      "fees and/or spread",
		"fees":                                    "fees and/or spread",
		"usd fees":                                "fees and/or spread",
		"notes":                                   "notes",
	}
	cols := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := aliases[key]; ok {
			if _, taken := cols[canonical]; !taken {
				cols[canonical] = i
			}
		}
	}
	return cols
}

// sanitizeNote cleans free-text CSV fields before they are stored and
// later re-served: strips unprintable runes and neutralizes leading
// spreadsheet formula characters.
func sanitizeNote(note string) string {
	return validation.SanitizeForFormulaInjection(validation.StripUnprintable(note))
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
