package tier

import (
	"time"

	"github.com/xraph/subledger/types"
)

type Tier struct {
	types.Entity
	Provider types.Address `json:"provider"`
	Index    uint64        `json:"index"`
	Price    types.Amount  `json:"price"`
	Duration time.Duration `json:"duration"`
	Name     string        `json:"name"`
	Active   bool          `json:"active"`
}

// Clone returns a copy that shares no state with t.
func (t *Tier) Clone() *Tier {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
