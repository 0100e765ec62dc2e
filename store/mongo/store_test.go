package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/subledger/journal"
	"github.com/xraph/subledger/types"
)

func TestEntryFilter(t *testing.T) {
	got := entryFilter(journal.ListOpts{
		AfterSeq:       10,
		Action:         journal.ActionSubscriptionRenewed,
		Provider:       types.MustAddress("provider"),
		SubscriptionID: 4,
	})

	if seq, ok := got["_id"].(bson.M); !ok || seq["$gt"] != int64(10) {
		t.Errorf("_id filter: got %v", got["_id"])
	}
	if got["action"] != "subscription.renewed" {
		t.Errorf("action: got %v", got["action"])
	}
	if got["provider"] != "provider" {
		t.Errorf("provider: got %v", got["provider"])
	}
	if got["subscription_id"] != int64(4) {
		t.Errorf("subscription_id: got %v", got["subscription_id"])
	}
	if _, ok := got["subscriber"]; ok {
		t.Error("unset subscriber should not filter")
	}
}

func TestMigrationIndexesKeepEntryIDUnique(t *testing.T) {
	idx := migrationIndexes()
	if len(idx) == 0 {
		t.Fatal("no indexes")
	}
	keys, ok := idx[0].Keys.(bson.D)
	if !ok || keys[0].Key != "entry_id" {
		t.Fatalf("first index keys: %v", idx[0].Keys)
	}
	if idx[0].Options == nil {
		t.Fatal("entry_id index has no options")
	}
}
