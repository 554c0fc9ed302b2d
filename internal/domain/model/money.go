package model

import "github.com/shopspring/decimal"

// Ledger APIs report currency in milliunits (1/1000 of a unit).
const milliunitExponent = -3

// FromMilliunits converts a ledger-native milliunit amount to a decimal.
func FromMilliunits(milli int64) decimal.Decimal {
	return decimal.New(milli, milliunitExponent)
}

// ToMilliunits converts a decimal amount back to milliunits, rounding
// half away from zero.
func ToMilliunits(amount decimal.Decimal) int64 {
	return amount.Shift(-milliunitExponent).Round(0).IntPart()
}

// Amount is shorthand for a valid NullDecimal, used by sources and tests.
func Amount(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// MustAmount parses a decimal string into a valid NullDecimal and panics
// on malformed input. Intended for literals.
func MustAmount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}
