package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tonkeeper/tongo/ton"
)

// ErrInvalidAddress is returned for empty or malformed identities.
var ErrInvalidAddress = errors.New("subledger: invalid address")

// Address identifies a subscriber, provider, operator or custody account.
// Addresses are always in normalized form; build them with ParseAddress.
type Address string

// ParseAddress normalizes an identity. TON account ids in raw or
// user-friendly form collapse to the raw "wc:hex" form, so every encoding of
// one account keys the same ActiveIndex slot. Other identities are trimmed
// and lower-cased.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return "", fmt.Errorf("%w: %q contains whitespace", ErrInvalidAddress, s)
	}

	if acc, err := ton.ParseAccountID(s); err == nil {
		return Address(acc.String()), nil
	}

	return Address(strings.ToLower(s)), nil
}

// MustAddress is like ParseAddress but panics on error. Use for hardcoded
// identities.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the normalized form.
func (a Address) String() string { return string(a) }

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool { return a == "" }
