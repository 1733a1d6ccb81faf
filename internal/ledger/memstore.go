package ledger

import (
	"context"
	"sync"

	"github.com/quizwire/moves-backend/internal/moves"
)

// gameDoc is everything the store holds for one game.
type gameDoc struct {
	requests map[string]moves.MoveRequest
	active   map[string]moves.ActiveMove
	overlay  moves.Overlay
	audit    []moves.AuditEntry
}

func newGameDoc() *gameDoc {
	return &gameDoc{
		requests: map[string]moves.MoveRequest{},
		active:   map[string]moves.ActiveMove{},
		overlay:  moves.EmptyOverlay(),
	}
}

func (d *gameDoc) clone() *gameDoc {
	c := newGameDoc()
	for k, v := range d.requests {
		c.requests[k] = v
	}
	for k, v := range d.active {
		c.active[k] = v
	}
	c.overlay = d.overlay
	c.audit = append(c.audit, d.audit...)
	return c
}

// Memstore is the single-node Store: one mutex-guarded document per game,
// copy-on-write staging so a failed transaction writes nothing.
type Memstore struct {
	mu    sync.Mutex
	games map[string]*gameDoc
}

func NewMemstore() *Memstore {
	return &Memstore{games: map[string]*gameDoc{}}
}

func (s *Memstore) doc(gameID string) *gameDoc {
	d, ok := s.games[gameID]
	if !ok {
		d = newGameDoc()
		s.games[gameID] = d
	}
	return d
}

func (s *Memstore) Update(ctx context.Context, gameID string, fn func(tx Txn) error) error {
	if err := ctx.Err(); err != nil {
		return moves.Wrap(moves.CodeTransient, "store unavailable", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.doc(gameID).clone()
	if err := fn(&memTxn{doc: staged}); err != nil {
		return err
	}
	s.games[gameID] = staged
	return nil
}

func (s *Memstore) View(ctx context.Context, gameID string, fn func(tx Txn) error) error {
	if err := ctx.Err(); err != nil {
		return moves.Wrap(moves.CodeTransient, "store unavailable", err)
	}

	s.mu.Lock()
	snapshot := s.doc(gameID).clone()
	s.mu.Unlock()

	return fn(&memTxn{doc: snapshot})
}

type memTxn struct {
	doc *gameDoc
}

func (t *memTxn) Request(id string) (moves.MoveRequest, bool) {
	r, ok := t.doc.requests[id]
	return r, ok
}

func (t *memTxn) PutRequest(req moves.MoveRequest) {
	t.doc.requests[req.ID] = req
}

func (t *memTxn) ActiveMoves() []moves.ActiveMove {
	out := make([]moves.ActiveMove, 0, len(t.doc.active))
	for _, m := range t.doc.active {
		out = append(out, m)
	}
	return out
}

func (t *memTxn) PutActive(m moves.ActiveMove) {
	t.doc.active[m.ID] = m
}

func (t *memTxn) DeleteActive(id string) {
	delete(t.doc.active, id)
}

func (t *memTxn) Overlay() moves.Overlay {
	return t.doc.overlay
}

func (t *memTxn) PutOverlay(o moves.Overlay) {
	t.doc.overlay = o
}

func (t *memTxn) AppendAudit(e moves.AuditEntry) {
	t.doc.audit = append(t.doc.audit, e)
}

func (t *memTxn) AuditLog() []moves.AuditEntry {
	out := make([]moves.AuditEntry, len(t.doc.audit))
	copy(out, t.doc.audit)
	return out
}
