package ledger

import (
	"time"

	"github.com/quizwire/moves-backend/internal/moves"
)

// Project recomputes the overlay from scratch from the full active set.
// Pure: the same live set always yields the same deployment and target
// maps. Tile-scoped moves badge their tile; player/global moves index
// under their target, ordered by expiry.
func Project(active []moves.ActiveMove, now time.Time, version int) moves.Overlay {
	o := moves.Overlay{
		DeploymentsByTile: map[string]moves.TileDeployment{},
		ActiveByTarget:    map[string][]moves.TargetMove{},
		UpdatedAt:         now,
		Version:           version,
	}

	for _, m := range active {
		if !m.Live(now) {
			continue
		}
		if m.Scope == moves.ScopeTile && m.TileID != "" {
			o.DeploymentsByTile[m.TileID] = moves.TileDeployment{
				Status:    moves.DeploymentArmed,
				MoveType:  m.MoveType,
				ExpiresAt: m.ExpiresAt,
				UpdatedAt: now,
			}
			continue
		}
		o.ActiveByTarget[m.TargetID] = append(o.ActiveByTarget[m.TargetID], moves.TargetMove{
			MoveType:  m.MoveType,
			ExpiresAt: m.ExpiresAt,
		})
	}

	for _, ms := range o.ActiveByTarget {
		moves.SortTargetMoves(ms)
	}

	return o
}

// RebuildOverlay sweeps expired entries, reprojects from the surviving
// live set, and replaces the overlay document wholesale, bumping its
// version. Runs inside the same transaction as whichever write triggered
// it, so readers never observe a half-built overlay.
func RebuildOverlay(tx Txn, now time.Time) moves.Overlay {
	SweepExpired(tx, now)
	o := Project(tx.ActiveMoves(), now, tx.Overlay().Version+1)
	tx.PutOverlay(o)
	return o
}
