package ledger

import (
	"time"

	"github.com/quizwire/moves-backend/internal/moves"
)

// LiveTileMove scans the active set for a live move on the given tile.
// Evaluated inside the activation transaction; the existing live entry
// always wins, so a newer request against the same tile is rejected rather
// than silently overwriting it. Expired entries never count.
func LiveTileMove(active []moves.ActiveMove, tileID string, now time.Time) (moves.ActiveMove, bool) {
	for _, m := range active {
		if m.Scope != moves.ScopeTile || m.TileID != tileID {
			continue
		}
		if m.Live(now) {
			return m, true
		}
	}
	return moves.ActiveMove{}, false
}
