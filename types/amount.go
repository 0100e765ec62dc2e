// Package types provides common types used across subledger.
package types

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
)

// Arithmetic errors. Amounts never wrap silently.
var (
	ErrAmountOverflow  = errors.New("subledger: amount overflow")
	ErrAmountUnderflow = errors.New("subledger: amount underflow")
)

// Amount is a quantity of the payment asset in its smallest unit.
// All arithmetic is unsigned and integer-only.
//
// Examples with a 6-decimal asset:
//   - Amount(10_000000) = 10.000000
//   - Amount(300000)    = 0.300000
type Amount uint64

// Add returns a+other, or ErrAmountOverflow if the sum does not fit.
func (a Amount) Add(other Amount) (Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(other), 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrAmountOverflow, a, other)
	}
	return Amount(sum), nil
}

// Sub returns a-other, or ErrAmountUnderflow if other exceeds a.
func (a Amount) Sub(other Amount) (Amount, error) {
	diff, borrow := bits.Sub64(uint64(a), uint64(other), 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %d - %d", ErrAmountUnderflow, a, other)
	}
	return Amount(diff), nil
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// FormatUnits renders the amount as a decimal string with the given number
// of fractional digits: Amount(10_000000).FormatUnits(6) == "10.000000".
func (a Amount) FormatUnits(decimals uint8) string {
	if decimals == 0 {
		return strconv.FormatUint(uint64(a), 10)
	}

	divisor := uint64(1)
	for i := uint8(0); i < decimals; i++ {
		divisor *= 10
	}

	major := uint64(a) / divisor
	minor := uint64(a) % divisor

	return fmt.Sprintf("%d.%0*d", major, int(decimals), minor)
}

// String returns the raw base-unit value.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Sum adds all values, failing on overflow.
func Sum(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}
