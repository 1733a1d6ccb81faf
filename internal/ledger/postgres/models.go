package postgres

import (
	"time"

	"github.com/quizwire/moves-backend/internal/moves"
)

type moveRequestRow struct {
	ID            string `gorm:"primaryKey"`
	GameID        string `gorm:"index:idx_requests_game"`
	State         string
	MoveType      string
	Scope         string
	TargetID      string
	TileID        string
	TTLMillis     int64
	ActorID       string
	ActorRole     string
	CreatedAt     time.Time
	CorrelationID string
}

func (moveRequestRow) TableName() string { return "move_requests" }

func toRequestRow(gameID string, r moves.MoveRequest) moveRequestRow {
	return moveRequestRow{
		ID:            r.ID,
		GameID:        gameID,
		State:         string(r.State),
		MoveType:      string(r.MoveType),
		Scope:         string(r.Scope),
		TargetID:      r.TargetID,
		TileID:        r.TileID,
		TTLMillis:     r.TTL.Milliseconds(),
		ActorID:       r.ActorID,
		ActorRole:     r.ActorRole,
		CreatedAt:     r.CreatedAt,
		CorrelationID: r.CorrelationID,
	}
}

func (r moveRequestRow) toDomain() moves.MoveRequest {
	return moves.MoveRequest{
		ID:            r.ID,
		State:         moves.RequestState(r.State),
		MoveType:      moves.MoveType(r.MoveType),
		Scope:         moves.Scope(r.Scope),
		TargetID:      r.TargetID,
		TileID:        r.TileID,
		TTL:           time.Duration(r.TTLMillis) * time.Millisecond,
		ActorID:       r.ActorID,
		ActorRole:     r.ActorRole,
		CreatedAt:     r.CreatedAt,
		CorrelationID: r.CorrelationID,
	}
}

type activeMoveRow struct {
	ID            string `gorm:"primaryKey"`
	GameID        string `gorm:"index:idx_active_game"`
	MoveType      string
	Scope         string
	TargetID      string
	TileID        string
	AppliedAt     time.Time
	ExpiresAt     time.Time `gorm:"index:idx_active_expiry"`
	RequestID     string
	CorrelationID string
}

func (activeMoveRow) TableName() string { return "active_moves" }

func toActiveRow(gameID string, m moves.ActiveMove) activeMoveRow {
	return activeMoveRow{
		ID:            m.ID,
		GameID:        gameID,
		MoveType:      string(m.MoveType),
		Scope:         string(m.Scope),
		TargetID:      m.TargetID,
		TileID:        m.TileID,
		AppliedAt:     m.AppliedAt,
		ExpiresAt:     m.ExpiresAt,
		RequestID:     m.RequestID,
		CorrelationID: m.CorrelationID,
	}
}

func (r activeMoveRow) toDomain() moves.ActiveMove {
	return moves.ActiveMove{
		ID:            r.ID,
		MoveType:      moves.MoveType(r.MoveType),
		Scope:         moves.Scope(r.Scope),
		TargetID:      r.TargetID,
		TileID:        r.TileID,
		AppliedAt:     r.AppliedAt,
		ExpiresAt:     r.ExpiresAt,
		RequestID:     r.RequestID,
		CorrelationID: r.CorrelationID,
	}
}

// overlayRow stores the projection as one document per game so the replace
// is a single-row write.
type overlayRow struct {
	GameID    string `gorm:"primaryKey"`
	Document  []byte
	Version   int
	UpdatedAt time.Time
}

func (overlayRow) TableName() string { return "overlays" }

type auditEntryRow struct {
	Seq            int64  `gorm:"primaryKey;autoIncrement"`
	ID             string `gorm:"uniqueIndex"`
	GameID         string `gorm:"index:idx_audit_game"`
	EventType      string
	Summary        string
	CreatedAt      time.Time
	CorrelationID  string
	IdempotencyKey string
}

func (auditEntryRow) TableName() string { return "audit_entries" }

func toAuditRow(gameID string, e moves.AuditEntry) auditEntryRow {
	return auditEntryRow{
		ID:             e.ID,
		GameID:         gameID,
		EventType:      string(e.EventType),
		Summary:        e.Summary,
		CreatedAt:      e.CreatedAt,
		CorrelationID:  e.CorrelationID,
		IdempotencyKey: e.IdempotencyKey,
	}
}

func (r auditEntryRow) toDomain() moves.AuditEntry {
	return moves.AuditEntry{
		ID:             r.ID,
		EventType:      moves.AuditEventType(r.EventType),
		Summary:        r.Summary,
		CreatedAt:      r.CreatedAt,
		CorrelationID:  r.CorrelationID,
		IdempotencyKey: r.IdempotencyKey,
	}
}
