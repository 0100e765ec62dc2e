package sqlite

import (
	"testing"

	"github.com/xraph/subledger/id"
	"github.com/xraph/subledger/journal"
)

func TestEntryModelBurnedToken(t *testing.T) {
	e := &journal.Entry{Seq: 1, ID: id.NewEntryID(), Action: journal.ActionTokenBurned, BurnedToken: 8}

	m, err := toEntryModel(e)
	if err != nil {
		t.Fatalf("toEntryModel: %v", err)
	}
	if m.TokenID != 8 || m.SubscriptionID != 0 {
		t.Errorf("indexed columns: token %d, subscription %d", m.TokenID, m.SubscriptionID)
	}
	back, err := fromEntryModel(m)
	if err != nil {
		t.Fatalf("fromEntryModel: %v", err)
	}
	if back.BurnedToken != 8 {
		t.Errorf("burned token: got %d", back.BurnedToken)
	}
}
