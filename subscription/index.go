package subscription

// ActiveIndex maps each (subscriber, provider) pair to its current
// subscription id. A present entry always references an active record; the
// ledger keeps that true by clearing the entry whenever it cancels. Not safe
// for concurrent use on its own.
type ActiveIndex struct {
	slots map[Pair]uint64
}

// NewActiveIndex returns an empty index.
func NewActiveIndex() *ActiveIndex {
	return &ActiveIndex{slots: make(map[Pair]uint64)}
}

// Get returns the current subscription id for p, or None.
func (x *ActiveIndex) Get(p Pair) uint64 {
	return x.slots[p]
}

// Set points p at id.
func (x *ActiveIndex) Set(p Pair, id uint64) {
	if id == None {
		delete(x.slots, p)
		return
	}
	x.slots[p] = id
}

// Clear resets p to None if it still points at id.
func (x *ActiveIndex) Clear(p Pair, id uint64) {
	if x.slots[p] == id {
		delete(x.slots, p)
	}
}

// Len returns the number of occupied slots.
func (x *ActiveIndex) Len() int {
	return len(x.slots)
}

// Each calls fn for every occupied slot.
func (x *ActiveIndex) Each(fn func(p Pair, id uint64)) {
	for p, id := range x.slots {
		fn(p, id)
	}
}
