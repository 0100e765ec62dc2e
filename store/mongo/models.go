package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/subledger/journal"
)

type entryModel struct {
	grove.BaseModel `grove:"table:subledger_journal"`

	Seq            int64     `grove:"seq,pk"          bson:"_id"`
	ID             string    `grove:"id"              bson:"entry_id"`
	Action         string    `grove:"action"          bson:"action"`
	Actor          string    `grove:"actor"           bson:"actor"`
	Provider       string    `grove:"provider"        bson:"provider,omitempty"`
	Subscriber     string    `grove:"subscriber"      bson:"subscriber,omitempty"`
	SubscriptionID int64     `grove:"subscription_id" bson:"subscription_id,omitempty"`
	TokenID        int64     `grove:"token_id"        bson:"token_id,omitempty"`
	OccurredAt     time.Time `grove:"occurred_at"     bson:"occurred_at"`
	Payload        string    `grove:"payload"         bson:"payload"`
}

func toEntryModel(e *journal.Entry) (*entryModel, error) {
	payload, err := journal.Encode(e)
	if err != nil {
		return nil, err
	}
	return &entryModel{
		Seq:            int64(e.Seq),
		ID:             e.ID.String(),
		Action:         string(e.Action),
		Actor:          e.Actor.String(),
		Provider:       e.Provider.String(),
		Subscriber:     e.Subscriber.String(),
		SubscriptionID: int64(e.SubscriptionID()),
		TokenID:        int64(e.TokenID()),
		OccurredAt:     e.OccurredAt,
		Payload:        string(payload),
	}, nil
}

func fromEntryModel(m *entryModel) (*journal.Entry, error) {
	return journal.Decode([]byte(m.Payload))
}
