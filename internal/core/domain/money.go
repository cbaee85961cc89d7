package domain

import "github.com/shopspring/decimal"

// Monetary amounts are 2-decimal-place fixed point. Rounding is
// deterministic and defined once here: round-half-up to the minor unit for
// divisions (commission splits), floor to the minor unit for installment
// bases with the remainder assigned to the last installment. Every place
// money is divided uses these helpers so reconciliation is exact.

// FromMinorUnits converts an integer minor-currency amount (e.g. kobo,
// cents) coming from the gateway into a major-unit fixed-point value.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-2)
}

// ToMinorUnits converts a major-unit amount to integer minor units for the
// gateway wire format.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

// RoundHalfUp rounds to 2 decimal places, halves away from zero.
func RoundHalfUp(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// SplitInstallments splits total into n amounts that sum to total exactly.
// Each amount is floor(total/n, 2dp); the cent remainder goes to the last
// installment.
func SplitInstallments(total decimal.Decimal, n int) []decimal.Decimal {
	base := total.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	amounts := make([]decimal.Decimal, n)
	for i := range amounts {
		amounts[i] = base
	}
	remainder := total.Sub(base.Mul(decimal.NewFromInt(int64(n))))
	amounts[n-1] = amounts[n-1].Add(remainder)
	return amounts
}

// VendorShare returns the amount credited to a vendor for one item
// subtotal after the platform commission is retained.
func VendorShare(subtotal, commissionRate decimal.Decimal) decimal.Decimal {
	return RoundHalfUp(subtotal.Mul(decimal.NewFromInt(1).Sub(commissionRate)))
}
