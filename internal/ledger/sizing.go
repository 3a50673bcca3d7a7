package ledger

import "github.com/shopspring/decimal"

var unitBetFraction = decimal.NewFromFloat(0.05)

// UnitBet returns the standard stake for a new position: 5% of the available
// balance, rounded down to whole cents.
func UnitBet(balance decimal.Decimal) decimal.Decimal {
	return balance.Mul(unitBetFraction).RoundDown(2)
}
