// Package postgres implements the ledger store contract on gorm/postgres
// for multi-node deployments. Per-game mutual exclusion comes from a
// transaction-scoped advisory lock, so concurrent arm/approve/clear calls
// against the same show serialize exactly like the in-memory store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quizwire/moves-backend/internal/ledger"
	"github.com/quizwire/moves-backend/internal/moves"
)

type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, moves.Wrap(moves.CodeTransient, "open postgres", err)
	}
	if err := db.AutoMigrate(&moveRequestRow{}, &activeMoveRow{}, &overlayRow{}, &auditEntryRow{}); err != nil {
		return nil, moves.Wrap(moves.CodeTransient, "migrate schema", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Update(ctx context.Context, gameID string, fn func(tx ledger.Txn) error) error {
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		// Serialize writers per game for the duration of the transaction.
		if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", gameID).Error; err != nil {
			return err
		}
		t := newTxn(db, gameID)
		if err := fn(t); err != nil {
			return err
		}
		return t.flush()
	})
	return classify(err)
}

func (s *Store) View(ctx context.Context, gameID string, fn func(tx ledger.Txn) error) error {
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(newTxn(db, gameID))
	})
	return classify(err)
}

// classify keeps taxonomy errors from the callback intact and treats
// everything the store itself produced as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *moves.Error
	if errors.As(err, &me) {
		return err
	}
	return moves.Wrap(moves.CodeTransient, "postgres store", err)
}

// txn stages writes in memory and flushes them at commit time so a failed
// callback leaves no rows behind, mirroring the memstore's semantics.
type txn struct {
	db     *gorm.DB
	gameID string

	putRequests map[string]moves.MoveRequest
	putActives  map[string]moves.ActiveMove
	delActives  map[string]bool
	overlay     *moves.Overlay
	audits      []moves.AuditEntry

	readErr error
}

func newTxn(db *gorm.DB, gameID string) *txn {
	return &txn{
		db:          db,
		gameID:      gameID,
		putRequests: map[string]moves.MoveRequest{},
		putActives:  map[string]moves.ActiveMove{},
		delActives:  map[string]bool{},
	}
}

func (t *txn) Request(id string) (moves.MoveRequest, bool) {
	if r, ok := t.putRequests[id]; ok {
		return r, true
	}
	var row moveRequestRow
	err := t.db.Where("game_id = ? AND id = ?", t.gameID, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return moves.MoveRequest{}, false
	}
	if err != nil {
		t.fail(err)
		return moves.MoveRequest{}, false
	}
	return row.toDomain(), true
}

func (t *txn) PutRequest(req moves.MoveRequest) {
	t.putRequests[req.ID] = req
}

func (t *txn) ActiveMoves() []moves.ActiveMove {
	var rows []activeMoveRow
	if err := t.db.Where("game_id = ?", t.gameID).Find(&rows).Error; err != nil {
		t.fail(err)
		return nil
	}

	out := make([]moves.ActiveMove, 0, len(rows)+len(t.putActives))
	seen := map[string]bool{}
	for _, row := range rows {
		if t.delActives[row.ID] {
			continue
		}
		if staged, ok := t.putActives[row.ID]; ok {
			out = append(out, staged)
			seen[row.ID] = true
			continue
		}
		out = append(out, row.toDomain())
	}
	for id, staged := range t.putActives {
		if !seen[id] && !t.delActives[id] {
			out = append(out, staged)
		}
	}
	return out
}

func (t *txn) PutActive(m moves.ActiveMove) {
	delete(t.delActives, m.ID)
	t.putActives[m.ID] = m
}

func (t *txn) DeleteActive(id string) {
	delete(t.putActives, id)
	t.delActives[id] = true
}

func (t *txn) Overlay() moves.Overlay {
	if t.overlay != nil {
		return *t.overlay
	}
	var row overlayRow
	err := t.db.Where("game_id = ?", t.gameID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return moves.EmptyOverlay()
	}
	if err != nil {
		t.fail(err)
		return moves.EmptyOverlay()
	}

	var o moves.Overlay
	if err := json.Unmarshal(row.Document, &o); err != nil {
		t.fail(err)
		return moves.EmptyOverlay()
	}
	return o
}

func (t *txn) PutOverlay(o moves.Overlay) {
	t.overlay = &o
}

func (t *txn) AppendAudit(e moves.AuditEntry) {
	t.audits = append(t.audits, e)
}

func (t *txn) AuditLog() []moves.AuditEntry {
	var rows []auditEntryRow
	if err := t.db.Where("game_id = ?", t.gameID).Order("seq asc").Find(&rows).Error; err != nil {
		t.fail(err)
		return nil
	}
	out := make([]moves.AuditEntry, 0, len(rows)+len(t.audits))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	out = append(out, t.audits...)
	return out
}

func (t *txn) fail(err error) {
	if t.readErr == nil {
		t.readErr = err
	}
}

func (t *txn) flush() error {
	if t.readErr != nil {
		return t.readErr
	}

	for _, req := range t.putRequests {
		row := toRequestRow(t.gameID, req)
		if err := t.db.Save(&row).Error; err != nil {
			return err
		}
	}

	for id := range t.delActives {
		if err := t.db.Where("game_id = ? AND id = ?", t.gameID, id).Delete(&activeMoveRow{}).Error; err != nil {
			return err
		}
	}
	for _, m := range t.putActives {
		row := toActiveRow(t.gameID, m)
		if err := t.db.Save(&row).Error; err != nil {
			return err
		}
	}

	if t.overlay != nil {
		doc, err := json.Marshal(t.overlay)
		if err != nil {
			return err
		}
		row := overlayRow{
			GameID:    t.gameID,
			Document:  doc,
			Version:   t.overlay.Version,
			UpdatedAt: t.overlay.UpdatedAt,
		}
		if err := t.db.Save(&row).Error; err != nil {
			return err
		}
	}

	for _, e := range t.audits {
		row := toAuditRow(t.gameID, e)
		if err := t.db.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

var (
	_ ledger.Store = (*Store)(nil)
	_ ledger.Txn   = (*txn)(nil)
)
