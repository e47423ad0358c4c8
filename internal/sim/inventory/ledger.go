// Package inventory is the offering ledger actions draw their costs
// from. The spirit subsystem only ever sees it through a narrow
// count/consume interface.
package inventory

// Ledger is owned by the simulation loop and is not safe for concurrent
// use. External readers get copies.
type Ledger struct {
	counts map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{counts: map[string]int{}}
}

func (l *Ledger) CountOf(itemID string) int {
	return l.counts[itemID]
}

// Add credits n of an item. Non-positive n and empty ids are no-ops.
func (l *Ledger) Add(itemID string, n int) {
	if itemID == "" || n <= 0 {
		return
	}
	l.counts[itemID] += n
}

// TryConsume debits n of an item, all or nothing. It never leaves a
// partial debit behind.
func (l *Ledger) TryConsume(itemID string, n int) bool {
	if itemID == "" || n <= 0 {
		return false
	}
	have := l.counts[itemID]
	if have < n {
		return false
	}
	if have == n {
		delete(l.counts, itemID)
	} else {
		l.counts[itemID] = have - n
	}
	return true
}

// Counts returns a copy of the current balances.
func (l *Ledger) Counts() map[string]int {
	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}
