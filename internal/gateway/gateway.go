// Package gateway is the entry point for special-move commands. It owns the
// request and active ledgers: deduplicates arms by idempotency key, runs the
// conflict check inside the activation transaction, appends audit entries,
// and publishes the rebuilt overlay after every change to the active set.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizwire/moves-backend/internal/ledger"
	"github.com/quizwire/moves-backend/internal/moves"
)

const DefaultTTL = 90 * time.Second

// Publisher receives the fresh overlay after a transaction changed the
// active set. The show hub implements this.
type Publisher interface {
	PublishOverlay(gameID string, o moves.Overlay)
}

type Options struct {
	// DefaultTTL applies when a request carries no TTL.
	DefaultTTL time.Duration
	// AutoApprove collapses arm+approve into one logical flow for
	// single-authority (director-only) deployments. A moderation UI turns
	// this off and calls ApproveMove itself.
	AutoApprove bool
	// Now is swappable for tests.
	Now func() time.Time
}

type Gateway struct {
	store       ledger.Store
	pub         Publisher
	log         *zap.Logger
	defaultTTL  time.Duration
	autoApprove bool
	now         func() time.Time
}

func New(store ledger.Store, pub Publisher, log *zap.Logger, opts Options) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gateway{
		store:       store,
		pub:         pub,
		log:         log,
		defaultTTL:  opts.DefaultTTL,
		autoApprove: opts.AutoApprove,
		now:         opts.Now,
	}
}

type ArmParams struct {
	GameID         string
	TileID         string
	MoveType       moves.MoveType
	ActorID        string
	ActorRole      string
	IdempotencyKey string
	CorrelationID  string
	TTL            time.Duration
}

type ArmResult struct {
	// ID is the request ID (= idempotency key).
	ID string
	// AlreadyExisted is true when the key had been submitted before; the
	// call was a no-op and ActiveID echoes the original activation, if any.
	AlreadyExisted bool
	// ActiveID is set when the move is (or already was) activated.
	ActiveID string
}

// ArmTile records an arm request for a tile. Resubmitting the same
// idempotency key returns the original outcome with no further side effect.
// The conflict check and the request creation share one transaction, so two
// concurrent arms on the same tile can never both succeed.
func (g *Gateway) ArmTile(ctx context.Context, p ArmParams) (ArmResult, error) {
	switch {
	case p.GameID == "":
		return ArmResult{}, moves.Errorf(moves.CodeInvalidArgument, "game id is required")
	case p.TileID == "":
		return ArmResult{}, moves.Errorf(moves.CodeInvalidArgument, "tile id is required")
	case !p.MoveType.Valid():
		return ArmResult{}, moves.Errorf(moves.CodeInvalidArgument, "unknown move type %q", p.MoveType)
	case p.ActorID == "":
		return ArmResult{}, moves.Errorf(moves.CodeInvalidArgument, "actor id is required")
	case p.IdempotencyKey == "":
		return ArmResult{}, moves.Errorf(moves.CodeInvalidArgument, "idempotency key is required")
	}

	now := g.now()
	res := ArmResult{ID: p.IdempotencyKey}
	var (
		overlay moves.Overlay
		swept   bool
	)

	err := g.store.Update(ctx, p.GameID, func(tx ledger.Txn) error {
		if req, ok := tx.Request(p.IdempotencyKey); ok {
			res.AlreadyExisted = true
			if req.State == moves.StateApproved {
				for _, m := range tx.ActiveMoves() {
					if m.RequestID == req.ID {
						res.ActiveID = m.ID
						break
					}
				}
			}
			return nil
		}

		swept = ledger.SweepExpired(tx, now) > 0
		if live, found := ledger.LiveTileMove(tx.ActiveMoves(), p.TileID, now); found {
			return moves.Errorf(moves.CodeConflict,
				"tile %s already has a live %s move", p.TileID, live.MoveType)
		}

		ttl := p.TTL
		if ttl <= 0 {
			ttl = g.defaultTTL
		}
		req := moves.MoveRequest{
			ID:            p.IdempotencyKey,
			State:         moves.StateRequested,
			MoveType:      p.MoveType,
			Scope:         moves.ScopeTile,
			TileID:        p.TileID,
			TTL:           ttl,
			ActorID:       p.ActorID,
			ActorRole:     p.ActorRole,
			CreatedAt:     now,
			CorrelationID: p.CorrelationID,
		}
		tx.PutRequest(req)
		tx.AppendAudit(moves.AuditEntry{
			ID:             uuid.NewString(),
			EventType:      moves.AuditMoveRequested,
			Summary:        fmt.Sprintf("%s requested %s on tile %s", p.ActorID, p.MoveType, p.TileID),
			CreatedAt:      now,
			CorrelationID:  p.CorrelationID,
			IdempotencyKey: p.IdempotencyKey,
		})

		if !g.autoApprove {
			// The sweep's deletions commit with this transaction, so the
			// overlay must be rebuilt now or it would keep showing the
			// expired tiles as armed until the next activation.
			if swept {
				overlay = ledger.RebuildOverlay(tx, now)
			}
			return nil
		}
		// Single-authority mode: approval shares the arm transaction, so a
		// conflicting arm commits nothing at all.
		activeID, err := approveInTx(tx, req, p.CorrelationID, now, g.defaultTTL)
		if err != nil {
			return err
		}
		res.ActiveID = activeID
		overlay = ledger.RebuildOverlay(tx, now)
		return nil
	})
	if err != nil {
		return ArmResult{}, err
	}

	if res.AlreadyExisted {
		g.log.Info("arm request deduplicated",
			zap.String("game_id", p.GameID),
			zap.String("request_id", res.ID),
			zap.String("correlation_id", p.CorrelationID),
		)
		return res, nil
	}

	g.log.Info("arm request created",
		zap.String("game_id", p.GameID),
		zap.String("request_id", res.ID),
		zap.String("tile_id", p.TileID),
		zap.String("move_type", string(p.MoveType)),
		zap.String("active_id", res.ActiveID),
		zap.String("correlation_id", p.CorrelationID),
	)

	if res.ActiveID != "" || swept {
		g.publish(p.GameID, overlay)
	}
	return res, nil
}

// approveInTx performs the REQUESTED→APPROVED transition and creates the
// active move inside the caller's transaction. The request passed in must
// already be staged via PutRequest.
func approveInTx(tx ledger.Txn, req moves.MoveRequest, correlationID string, now time.Time, defaultTTL time.Duration) (string, error) {
	if !moves.CanTransition(req.State, moves.StateApproved) {
		return "", moves.Errorf(moves.CodePreconditionFailed,
			"request %s is %s, not %s", req.ID, req.State, moves.StateRequested)
	}

	req.State = moves.StateApproved
	tx.PutRequest(req)

	ttl := req.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	activeID := uuid.NewString()
	tx.PutActive(moves.ActiveMove{
		ID:            activeID,
		MoveType:      req.MoveType,
		Scope:         req.Scope,
		TargetID:      req.TargetID,
		TileID:        req.TileID,
		AppliedAt:     now,
		ExpiresAt:     now.Add(ttl),
		RequestID:     req.ID,
		CorrelationID: correlationID,
	})
	tx.AppendAudit(moves.AuditEntry{
		ID:             uuid.NewString(),
		EventType:      moves.AuditMoveApproved,
		Summary:        fmt.Sprintf("%s approved on %s", req.MoveType, targetLabel(req)),
		CreatedAt:      now,
		CorrelationID:  correlationID,
		IdempotencyKey: req.ID,
	})
	return activeID, nil
}

// ApproveMove flips a REQUESTED move to APPROVED and activates it. The
// state flip, the conflict re-check, the active-move creation, the audit
// entry, and the overlay rebuild commit in a single transaction.
func (g *Gateway) ApproveMove(ctx context.Context, gameID, requestID, correlationID string) (string, error) {
	switch {
	case gameID == "":
		return "", moves.Errorf(moves.CodeInvalidArgument, "game id is required")
	case requestID == "":
		return "", moves.Errorf(moves.CodeInvalidArgument, "request id is required")
	}

	now := g.now()
	var (
		activeID string
		overlay  moves.Overlay
	)

	err := g.store.Update(ctx, gameID, func(tx ledger.Txn) error {
		req, ok := tx.Request(requestID)
		if !ok {
			return moves.Errorf(moves.CodeNotFound, "request %s not found", requestID)
		}
		if req.State != moves.StateRequested {
			return moves.Errorf(moves.CodePreconditionFailed,
				"request %s is %s, not %s", requestID, req.State, moves.StateRequested)
		}

		ledger.SweepExpired(tx, now)
		if req.Scope == moves.ScopeTile {
			if live, found := ledger.LiveTileMove(tx.ActiveMoves(), req.TileID, now); found && live.RequestID != req.ID {
				return moves.Errorf(moves.CodeConflict,
					"tile %s already has a live %s move", req.TileID, live.MoveType)
			}
		}

		var err error
		activeID, err = approveInTx(tx, req, correlationID, now, g.defaultTTL)
		if err != nil {
			return err
		}
		overlay = ledger.RebuildOverlay(tx, now)
		return nil
	})
	if err != nil {
		return "", err
	}

	g.log.Info("move approved",
		zap.String("game_id", gameID),
		zap.String("request_id", requestID),
		zap.String("active_id", activeID),
		zap.String("correlation_id", correlationID),
		zap.Int("overlay_version", overlay.Version),
	)
	g.publish(gameID, overlay)
	return activeID, nil
}

// ClearArmory deletes every tile-scoped active move in one atomic batch.
// Clearing to empty is idempotent by construction, so no dedup key is
// consulted even though callers still send one for the audit trail.
func (g *Gateway) ClearArmory(ctx context.Context, gameID, actorID, idempotencyKey, correlationID string) (int, error) {
	switch {
	case gameID == "":
		return 0, moves.Errorf(moves.CodeInvalidArgument, "game id is required")
	case actorID == "":
		return 0, moves.Errorf(moves.CodeInvalidArgument, "actor id is required")
	}

	now := g.now()
	var (
		cleared int
		overlay moves.Overlay
	)

	err := g.store.Update(ctx, gameID, func(tx ledger.Txn) error {
		cleared = 0
		for _, m := range tx.ActiveMoves() {
			if m.Scope == moves.ScopeTile {
				tx.DeleteActive(m.ID)
				cleared++
			}
		}
		tx.AppendAudit(moves.AuditEntry{
			ID:             uuid.NewString(),
			EventType:      moves.AuditArmoryCleared,
			Summary:        fmt.Sprintf("%s cleared %d armed tiles", actorID, cleared),
			CreatedAt:      now,
			CorrelationID:  correlationID,
			IdempotencyKey: idempotencyKey,
		})
		overlay = ledger.RebuildOverlay(tx, now)
		return nil
	})
	if err != nil {
		return 0, err
	}

	g.log.Info("armory cleared",
		zap.String("game_id", gameID),
		zap.String("actor_id", actorID),
		zap.Int("cleared", cleared),
		zap.String("correlation_id", correlationID),
	)
	g.publish(gameID, overlay)
	return cleared, nil
}

// CurrentOverlay returns the last committed overlay. An expired move may
// still be present until the next write rebuilds; subscribers filter on
// expiry themselves.
func (g *Gateway) CurrentOverlay(ctx context.Context, gameID string) (moves.Overlay, error) {
	if gameID == "" {
		return moves.Overlay{}, moves.Errorf(moves.CodeInvalidArgument, "game id is required")
	}
	var o moves.Overlay
	err := g.store.View(ctx, gameID, func(tx ledger.Txn) error {
		o = tx.Overlay()
		return nil
	})
	if err != nil {
		return moves.Overlay{}, err
	}
	return o, nil
}

// AuditLog returns the committed transitions for a game, oldest first.
func (g *Gateway) AuditLog(ctx context.Context, gameID string) ([]moves.AuditEntry, error) {
	if gameID == "" {
		return nil, moves.Errorf(moves.CodeInvalidArgument, "game id is required")
	}
	var entries []moves.AuditEntry
	err := g.store.View(ctx, gameID, func(tx ledger.Txn) error {
		entries = tx.AuditLog()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (g *Gateway) publish(gameID string, o moves.Overlay) {
	if g.pub != nil {
		g.pub.PublishOverlay(gameID, o)
	}
}

func targetLabel(req moves.MoveRequest) string {
	if req.TileID != "" {
		return "tile " + req.TileID
	}
	if req.TargetID != "" {
		return "target " + req.TargetID
	}
	return "global"
}
