package capability

import (
	"time"

	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/types"
)

// Token is a holder-bound, non-transferable access capability. Its holder is
// fixed at mint; the API has no operation that reassigns it.
type Token struct {
	ID         uint64        `json:"id"`
	Holder     types.Address `json:"holder"`
	Provider   types.Address `json:"provider"`
	Tier       uint64        `json:"tier"`
	MintTime   time.Time     `json:"mint_time"`
	ExpiryTime time.Time     `json:"expiry_time"`
	Active     bool          `json:"active"`
}

// ValidAt reports whether the token grants access at now.
func (t Token) ValidAt(now time.Time) bool {
	return t.Active && types.Within(now, t.ExpiryTime)
}

// Pair returns the (holder, provider) key of the token.
func (t Token) Pair() subscription.Pair {
	return subscription.Pair{Subscriber: t.Holder, Provider: t.Provider}
}
