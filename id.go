package subledger

import "github.com/xraph/subledger/id"

// ID is the identifier type of journal entries, charges and withdrawals.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix
