package subledger

import "sync/atomic"

// guard is the ledger-wide busy flag. While one guarded operation runs, every
// other guarded entry point, including one re-entered from an asset callback
// on the same call stack, fails with ErrReentrant instead of waiting.
type guard struct {
	busy atomic.Bool
}

func (g *guard) enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrReentrant
	}
	return nil
}

func (g *guard) exit() {
	g.busy.Store(false)
}
