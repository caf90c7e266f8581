package postgres

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// bigText renders v for a NUMERIC column; nil is stored as zero.
func bigText(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(text string) (*big.Int, error) {
	out, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", text)
	}
	return out, nil
}

// parser converts NUMERIC text columns, keeping the first error.
type parser struct {
	err error
}

func (p *parser) big(column, text string) *big.Int {
	out, err := parseBig(text)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("%s: %w", column, err)
		}
		return new(big.Int)
	}
	return out
}

func (p *parser) decimal(column, text string) decimal.Decimal {
	out, err := decimal.NewFromString(text)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("%s: %w", column, err)
		}
		return decimal.Zero
	}
	return out
}
