package subledger

import (
	"github.com/xraph/subledger/capability"
	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/subscription"
	"github.com/xraph/subledger/tier"
	"github.com/xraph/subledger/types"
)

// Re-export common types for convenience so users don't have to import every
// sub-package.

// Address is re-exported from types package.
type Address = types.Address

// Amount is re-exported from types package.
type Amount = types.Amount

// Tier is re-exported from tier package.
type Tier = tier.Tier

// Subscription is re-exported from subscription package.
type Subscription = subscription.Subscription

// Token is re-exported from capability package.
type Token = capability.Token

// Entry is re-exported from journal package.
type Entry = journal.Entry

// ListOpts is re-exported from journal package.
type ListOpts = journal.ListOpts

// Re-export constructors
var (
	ParseAddress = types.ParseAddress
	MustAddress  = types.MustAddress
	SplitFee     = types.SplitFee
)

// NoSubscription is the sentinel subscription id meaning "none".
const NoSubscription = subscription.None
