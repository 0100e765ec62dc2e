package types

import (
	"fmt"
	"math/bits"
)

// Fee limits, in basis points out of BasisPoints.
const (
	BasisPoints uint16 = 10000
	MaxFeeBps   uint16 = 1000
)

// Split is the result of dividing a charge between the platform and the
// provider. Fee + Provider always equals Price.
type Split struct {
	Price    Amount `json:"price"`
	Fee      Amount `json:"fee"`
	Provider Amount `json:"provider"`
}

// SplitFee computes fee = floor(price * feeBps / 10000) and assigns the
// remainder to the provider. The product is computed in 128 bits so no
// price can overflow. It panics if feeBps exceeds BasisPoints.
func SplitFee(price Amount, feeBps uint16) Split {
	if feeBps > BasisPoints {
		panic(fmt.Sprintf("types: fee %d bps exceeds %d", feeBps, BasisPoints))
	}

	hi, lo := bits.Mul64(uint64(price), uint64(feeBps))
	fee, _ := bits.Div64(hi, lo, uint64(BasisPoints))

	return Split{
		Price:    price,
		Fee:      Amount(fee),
		Provider: price - Amount(fee),
	}
}
