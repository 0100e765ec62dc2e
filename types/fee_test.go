package types

import (
	"math"
	"testing"
)

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name         string
		price        Amount
		bps          uint16
		wantFee      Amount
		wantProvider Amount
	}{
		{"three percent", 10_000000, 300, 300000, 9_700000},
		{"zero fee", 10_000000, 0, 0, 10_000000},
		{"cap", 10_000000, MaxFeeBps, 1_000000, 9_000000},
		{"floor rounding", 999, 300, 29, 970},
		{"below one unit", 33, 300, 0, 33},
		{"one unit", 1, 1000, 0, 1},
		{"full", 12345, BasisPoints, 12345, 0},
		{"max price", math.MaxUint64, 300, 553402322211286548, math.MaxUint64 - 553402322211286548},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SplitFee(tt.price, tt.bps)
			if s.Fee != tt.wantFee {
				t.Errorf("Fee: got %d, want %d", s.Fee, tt.wantFee)
			}
			if s.Provider != tt.wantProvider {
				t.Errorf("Provider: got %d, want %d", s.Provider, tt.wantProvider)
			}
			if s.Fee+s.Provider != tt.price {
				t.Errorf("shares %d + %d do not sum to price %d", s.Fee, s.Provider, tt.price)
			}
		})
	}
}

func TestSplitFeeConservesEveryPrice(t *testing.T) {
	for price := Amount(0); price < 5000; price += 7 {
		for _, bps := range []uint16{0, 1, 250, 300, 999, 1000} {
			s := SplitFee(price, bps)
			if s.Fee+s.Provider != price {
				t.Fatalf("price %d bps %d: %d + %d != price", price, bps, s.Fee, s.Provider)
			}
			if want := Amount(uint64(price) * uint64(bps) / 10000); s.Fee != want {
				t.Fatalf("price %d bps %d: fee %d, want %d", price, bps, s.Fee, want)
			}
		}
	}
}

func TestSplitFeePanicsAboveBasisPoints(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for fee above 10000 bps")
		}
	}()
	SplitFee(100, BasisPoints+1)
}
