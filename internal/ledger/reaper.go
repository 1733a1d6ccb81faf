package ledger

import (
	"time"
)

// SweepExpired deletes every expired active move inside the caller's
// transaction and reports how many it removed. There is no background
// scheduler: any transaction touching the active set sweeps first, so an
// expired row can linger physically but is gone from every live read.
func SweepExpired(tx Txn, now time.Time) int {
	removed := 0
	for _, m := range tx.ActiveMoves() {
		if !m.Live(now) {
			tx.DeleteActive(m.ID)
			removed++
		}
	}
	return removed
}
