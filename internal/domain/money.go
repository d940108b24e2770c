package domain

import (
	"github.com/shopspring/decimal"
)

// Monetary amounts are kept at two decimal places throughout the ledger.
// RoundAmount is applied on every external input before it reaches an
// aggregate so balance arithmetic never accumulates sub-cent residue.
func RoundAmount(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// ValidAmount reports whether v is usable as an operation amount.
func ValidAmount(v decimal.Decimal) bool {
	return v.IsPositive()
}
