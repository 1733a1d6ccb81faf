// Package ledger owns the durable state of the subsystem: the request
// ledger, the active-move ledger, the overlay singleton, and the audit log,
// all scoped per game. Mutations happen through short-lived atomic
// transactions; the store, not the caller, provides mutual exclusion.
package ledger

import (
	"context"

	"github.com/quizwire/moves-backend/internal/moves"
)

// Txn is one atomic view over a single game's documents. Writes staged
// through a Txn commit together when the Update callback returns nil and
// are discarded entirely when it returns an error.
type Txn interface {
	Request(id string) (moves.MoveRequest, bool)
	PutRequest(req moves.MoveRequest)

	ActiveMoves() []moves.ActiveMove
	PutActive(m moves.ActiveMove)
	DeleteActive(id string)

	Overlay() moves.Overlay
	PutOverlay(o moves.Overlay)

	AppendAudit(e moves.AuditEntry)
	AuditLog() []moves.AuditEntry
}

// Store is the transactional document store behind the command gateway.
// Update serializes writers per game; View never blocks behind another
// reader and sees only committed state.
type Store interface {
	Update(ctx context.Context, gameID string, fn func(tx Txn) error) error
	View(ctx context.Context, gameID string, fn func(tx Txn) error) error
}
