package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/subledger/journal"
)

type entryModel struct {
	grove.BaseModel `grove:"table:subledger_journal"`

	Seq            int64     `grove:"seq,pk"`
	ID             string    `grove:"id"`
	Action         string    `grove:"action"`
	Actor          string    `grove:"actor"`
	Provider       string    `grove:"provider"`
	Subscriber     string    `grove:"subscriber"`
	SubscriptionID int64     `grove:"subscription_id"`
	TokenID        int64     `grove:"token_id"`
	OccurredAt     time.Time `grove:"occurred_at"`
	Payload        string    `grove:"payload"`
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
