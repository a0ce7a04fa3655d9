package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of transaction kinds the engine
// understands. Anything outside this set is rejected at parse time so
// a misspelled type can never silently fall through lot accounting.
type TransactionType int

const (
	TypeBuy TransactionType = iota
	TypeSell
	TypeConvert
	TypeSend
	TypeReceive
	TypeRewardsIncome
	TypeCoinbaseEarn
	TypePaidForOrder
)

func (t TransactionType) String() string {
	switch t {
	case TypeBuy:
		return "buy"
	case TypeSell:
		return "sell"
	case TypeConvert:
		return "convert"
	case TypeSend:
		return "send"
	case TypeReceive:
		return "receive"
	case TypeRewardsIncome:
		return "rewards_income"
	case TypeCoinbaseEarn:
		return "coinbase_earn"
	case TypePaidForOrder:
		return "paid_for_order"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

func (t TransactionType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// ErrUnrecognizedTransactionType is returned when an input row carries
// a type outside the known taxonomy. It is fatal for the whole run.
var ErrUnrecognizedTransactionType = errors.New("unrecognized transaction type")

// ParseTransactionType maps the labels found in exchange exports onto
// the closed taxonomy. Labels are matched case-insensitively and
// common prefix variants ("Advanced Trade Buy", "Paid for an order")
// are folded into their base type.
func ParseTransactionType(label string) (TransactionType, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	switch {
	case normalized == "buy" || normalized == "advanced trade buy":
		return TypeBuy, nil
	case normalized == "sell" || normalized == "advanced trade sell":
		return TypeSell, nil
	case normalized == "convert":
		return TypeConvert, nil
	case strings.HasPrefix(normalized, "send"):
		return TypeSend, nil
	case strings.HasPrefix(normalized, "receive"):
		return TypeReceive, nil
	case normalized == "rewards income" || normalized == "rewards_income" ||
		strings.HasPrefix(normalized, "staking income"):
		return TypeRewardsIncome, nil
	case normalized == "coinbase earn" || normalized == "coinbase_earn" ||
		normalized == "learning reward":
		return TypeCoinbaseEarn, nil
	case strings.HasPrefix(normalized, "paid"):
		return TypePaidForOrder, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnrecognizedTransactionType, label)
}

// IsAcquisition reports whether the type creates a new lot on its own
// (Convert acquires on the destination leg but is dispatched
// separately).
func (t TransactionType) IsAcquisition() bool {
	switch t {
	case TypeBuy, TypeReceive, TypeRewardsIncome, TypeCoinbaseEarn:
		return true
	}
	return false
}

// IsDisposal reports whether the type consumes lots on its own.
func (t TransactionType) IsDisposal() bool {
	switch t {
	case TypeSell, TypeSend, TypePaidForOrder:
		return true
	}
	return false
}

// IsIncome reports whether the type produces an IncomeRecord.
func (t TransactionType) IsIncome() bool {
	return t == TypeRewardsIncome || t == TypeCoinbaseEarn
}

// Transaction is one normalized input row: a single event against a
// single asset, with every fiat amount quoted in USD at transaction
// time. Quantities and amounts are exact decimals end to end.
type Transaction struct {
	ID        int64           `json:"id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Type      TransactionType `json:"type"`
	Asset     string          `json:"asset"`
	Quantity  decimal.Decimal `json:"quantity"`
	SpotPrice decimal.Decimal `json:"spot_price"` // USD per unit at Timestamp
	Subtotal  decimal.Decimal `json:"subtotal"`   // USD before fees
	Total     decimal.Decimal `json:"total"`      // USD including fees
	Fees      decimal.Decimal `json:"fees"`
	Note      string          `json:"note,omitempty"`
	Source    string          `json:"source,omitempty"` // e.g. "coinbase"
	HashID    string          `json:"hash_id,omitempty"`
}

// Validate checks the structural invariants every transaction must
// satisfy before it reaches the disposal engine.
func (t *Transaction) Validate() error {
	if t.Timestamp.IsZero() {
		return fmt.Errorf("transaction has zero timestamp (asset %s)", t.Asset)
	}
	if t.Asset == "" {
		return fmt.Errorf("transaction at %s has empty asset code", t.Timestamp.Format(time.RFC3339))
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("transaction at %s (%s) has non-positive quantity %s",
			t.Timestamp.Format(time.RFC3339), t.Asset, t.Quantity)
	}
	if t.Fees.IsNegative() {
		return fmt.Errorf("transaction at %s (%s) has negative fees %s",
			t.Timestamp.Format(time.RFC3339), t.Asset, t.Fees)
	}
	if t.Type == TypeConvert {
		if _, err := ParseConvertNote(t.Note); err != nil {
			return err
		}
	}
	return nil
}

// ComputeHashID derives a stable identifier for upload deduplication.
func (t *Transaction) ComputeHashID() string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s",
		t.Timestamp.UTC().Format(time.RFC3339Nano), t.Type, t.Asset,
		t.Quantity, t.SpotPrice, t.Subtotal, t.Fees, t.Note)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// ConvertLeg is the paired movement a Convert note encodes: dispose
// FromQuantity of FromAsset, acquire ToQuantity of ToAsset.
type ConvertLeg struct {
	FromQuantity decimal.Decimal
	FromAsset    string
	ToQuantity   decimal.Decimal
	ToAsset      string
}

// ErrMalformedConvertNote is returned when a Convert row's note does
// not encode exactly one (fromQty, fromAsset, toQty, toAsset) tuple.
var ErrMalformedConvertNote = errors.New("malformed convert note")

var convertNoteRe = regexp.MustCompile(`(?i)converted\s+([0-9][0-9.,]*)\s+([A-Za-z0-9]+)\s+to\s+([0-9][0-9.,]*)\s+([A-Za-z0-9]+)`)

// ParseConvertNote extracts the conversion pair from a note like
// "Converted 0.5 BTC to 8.25 ETH". The note must contain exactly one
// such pair.
func ParseConvertNote(note string) (ConvertLeg, error) {
	matches := convertNoteRe.FindAllStringSubmatch(note, -1)
	if len(matches) != 1 {
		return ConvertLeg{}, fmt.Errorf("%w: %q", ErrMalformedConvertNote, note)
	}
	m := matches[0]
	fromQty, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return ConvertLeg{}, fmt.Errorf("%w: bad source quantity in %q", ErrMalformedConvertNote, note)
	}
	toQty, err := decimal.NewFromString(strings.ReplaceAll(m[3], ",", ""))
	if err != nil {
		return ConvertLeg{}, fmt.Errorf("%w: bad destination quantity in %q", ErrMalformedConvertNote, note)
	}
	if !fromQty.IsPositive() || !toQty.IsPositive() {
		return ConvertLeg{}, fmt.Errorf("%w: non-positive quantity in %q", ErrMalformedConvertNote, note)
	}
	return ConvertLeg{
		FromQuantity: fromQty,
		FromAsset:    strings.ToUpper(m[2]),
		ToQuantity:   toQty,
		ToAsset:      strings.ToUpper(m[4]),
	}, nil
}
