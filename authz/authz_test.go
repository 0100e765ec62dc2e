package authz

import (
	"errors"
	"testing"

	"github.com/xraph/subledger/types"
)

func TestPolicyRequire(t *testing.T) {
	operator := types.MustAddress("operator")
	minter := types.MustAddress("minter")
	stranger := types.MustAddress("stranger")

	p := NewPolicy().
		Grant(operator, PermOperator).
		Grant(minter, PermMint)

	tests := []struct {
		name    string
		who     types.Address
		perm    Permission
		allowed bool
	}{
		{"operator operates", operator, PermOperator, true},
		{"operator cannot mint", operator, PermMint, false},
		{"minter mints", minter, PermMint, true},
		{"stranger denied", stranger, PermOperator, false},
		{"empty identity denied", "", PermOperator, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Require(tt.who, tt.perm)
			if tt.allowed && err != nil {
				t.Fatalf("expected allowed, got %v", err)
			}
			if !tt.allowed && !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestPolicyRevoke(t *testing.T) {
	who := types.MustAddress("operator")
	p := NewPolicy().Grant(who, PermOperator, PermMint)

	p.Revoke(who, PermOperator)
	if p.Has(who, PermOperator) {
		t.Error("expected operator permission revoked")
	}
	if !p.Has(who, PermMint) {
		t.Error("expected mint permission kept")
	}

	p.Revoke(who, PermMint)
	if got := p.Holders(PermMint); len(got) != 0 {
		t.Errorf("expected no mint holders, got %v", got)
	}
}
