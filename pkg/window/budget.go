package window

// Budget is the hard token bound one allocation pass works under. Reserved
// accounts for the caller's own prompt plus a fixed response allowance.
// Nothing guarantees Reserved < Total; that misconfiguration is answered by
// retaining zero items rather than by failing.
type Budget struct {
	Total    int
	Reserved int
}

// Available returns the tokens the allocator may actually spend. May be
// negative when the budget is misconfigured.
func (b Budget) Available() int {
	return b.Total - b.Reserved
}

// Misconfigured reports whether the reservation leaves no room at all.
func (b Budget) Misconfigured() bool {
	return b.Reserved >= b.Total
}

// Ledger accumulates committed token cost for one allocation pass. Used
// never decreases and never exceeds the available budget after a committed
// step. Each Allocate call owns an independent Ledger; it is not shared.
type Ledger struct {
	used      int
	available int
}

// NewLedger creates a ledger for the given spendable token count.
func NewLedger(available int) *Ledger {
	return &Ledger{available: available}
}

// Used returns the tokens committed so far.
func (l *Ledger) Used() int {
	return l.used
}

// Fits reports whether a representation of the given cost can be committed.
func (l *Ledger) Fits(cost int) bool {
	return l.used+cost <= l.available
}

// Commit records a representation's cost. It returns false, committing
// nothing, if the cost does not fit.
func (l *Ledger) Commit(cost int) bool {
	if cost < 0 || !l.Fits(cost) {
		return false
	}
	l.used += cost
	return true
}

// Exhausted reports whether no further tokens can be spent.
func (l *Ledger) Exhausted() bool {
	return l.used >= l.available
}
