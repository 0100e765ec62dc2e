// Package authz maps caller identities to permission sets.
//
// A Policy is handed explicitly to every component that gates mutation on a
// role. There is no global administrator: the operator and the minter are
// whatever identities the wiring code grants.
package authz

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/subledger/types"
)

// ErrUnauthorized is returned when a caller lacks the required permission.
var ErrUnauthorized = errors.New("subledger: unauthorized")

// Permission names one gated capability.
type Permission string

// Known permissions.
const (
	// PermOperator covers fee updates, pause switching and issuer rotation.
	PermOperator Permission = "platform.operate"
	// PermMint covers mint, renew, revoke, restore and discard on a
	// capability issuer.
	PermMint Permission = "capability.mint"
)

// Policy is a concurrency-safe identity to permission-set mapping.
type Policy struct {
	mu     sync.RWMutex
	grants map[types.Address]map[Permission]struct{}
}

// NewPolicy returns an empty policy.
func NewPolicy() *Policy {
	return &Policy{grants: make(map[types.Address]map[Permission]struct{})}
}

// Grant adds permissions to an identity.
func (p *Policy) Grant(who types.Address, perms ...Permission) *Policy {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.grants[who]
	if !ok {
		set = make(map[Permission]struct{}, len(perms))
		p.grants[who] = set
	}
	for _, perm := range perms {
		set[perm] = struct{}{}
	}
	return p
}

// Revoke removes a permission from an identity.
func (p *Policy) Revoke(who types.Address, perm Permission) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if set, ok := p.grants[who]; ok {
		delete(set, perm)
		if len(set) == 0 {
			delete(p.grants, who)
		}
	}
}

// Has reports whether who holds perm.
func (p *Policy) Has(who types.Address, perm Permission) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.grants[who][perm]
	return ok
}

// Require returns ErrUnauthorized unless who holds perm.
func (p *Policy) Require(who types.Address, perm Permission) error {
	if who.IsZero() || !p.Has(who, perm) {
		return fmt.Errorf("%w: %q lacks %s", ErrUnauthorized, who, perm)
	}
	return nil
}

// Holders lists the identities holding perm, sorted.
func (p *Policy) Holders(perm Permission) []types.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []types.Address
	for who, set := range p.grants {
		if _, ok := set[perm]; ok {
			out = append(out, who)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
