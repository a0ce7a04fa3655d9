package parsers

import (
	"fmt"

	"github.com/username/cryptofolio/backend/src/parsers/coinbase"
)

func GetParser(source string) (Parser, error) {
	switch source {
	case "coinbase":
		return coinbase.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}
