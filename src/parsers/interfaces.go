package parsers

import (
	"io"

	"github.com/username/cryptofolio/backend/src/models"
)

// Parser defines the interface every exchange-export parser
// implements: read one CSV export and return normalized transactions
// in the file's own order. Parsers own all text concerns (preamble
// skipping, date and decimal parsing, type-label normalization) so
// the engine never sees a malformed or metadata row.
type Parser interface {
	Parse(file io.Reader) ([]models.Transaction, error)
}
