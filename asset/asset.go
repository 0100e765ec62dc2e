// Package asset defines the fungible payment asset boundary.
//
// The ledger never holds balances of the asset itself; it moves units through
// an Asset implementation and treats any returned error as a failed payment.
package asset

import (
	"context"

	"github.com/xraph/subledger/types"
)

// Asset moves units of a fungible payment asset.
type Asset interface {
	// Transfer moves amount from from to to.
	Transfer(ctx context.Context, from, to types.Address, amount types.Amount) error

	// TransferFrom moves amount from from to to on behalf of spender, drawing
	// down the allowance from granted to spender.
	TransferFrom(ctx context.Context, spender, from, to types.Address, amount types.Amount) error
}
