package domain

import "github.com/shopspring/decimal"

// FeePolicy computes the platform fee charged alongside a transaction.
//
// The same policy instance must be used on both the authorization and the
// capture path of a trip, otherwise the captured amounts stop reconciling
// against the authorized holds.
type FeePolicy struct {
	Base decimal.Decimal
	Rate decimal.Decimal
}

// DefaultFeePolicy returns the fixed platform policy: 20 base + 5% of the
// transaction value.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		Base: decimal.NewFromInt(20),
		Rate: decimal.NewFromFloat(0.05),
	}
}

// Fee returns the platform fee for a transaction.
//
// When captureAmount is non-nil the rate applies to min(transactionValue,
// captureAmount): if the eventual per-person share comes in under the
// authorized worst case, the fee follows the amount actually captured.
// Pure; no rounding happens here (see MinorUnits).
func (p FeePolicy) Fee(transactionValue decimal.Decimal, captureAmount *decimal.Decimal) decimal.Decimal {
	basis := transactionValue
	if captureAmount != nil && captureAmount.LessThan(basis) {
		basis = *captureAmount
	}
	return p.Base.Add(p.Rate.Mul(basis))
}

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a decimal currency amount to integer minor units
// (cents), rounding up. This is the only place amounts are rounded, and it is
// applied only at the processor boundary so rounding error never compounds
// through intermediate arithmetic.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Ceil().IntPart()
}
