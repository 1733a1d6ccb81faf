// Package moves holds the domain model for the special-moves subsystem:
// arm requests, active moves, the read-optimized overlay, and audit entries.
package moves

import (
	"sort"
	"time"
)

type MoveType string

const (
	MoveDoubleTrouble MoveType = "DOUBLE_TROUBLE"
	MoveTripleThreat  MoveType = "TRIPLE_THREAT"
	MoveSabotage      MoveType = "SABOTAGE"
	MoveMegaSteal     MoveType = "MEGA_STEAL"
)

func (m MoveType) Valid() bool {
	switch m {
	case MoveDoubleTrouble, MoveTripleThreat, MoveSabotage, MoveMegaSteal:
		return true
	}
	return false
}

type Scope string

const (
	ScopeTile   Scope = "TILE"
	ScopePlayer Scope = "PLAYER"
	ScopeGlobal Scope = "GLOBAL"
)

type RequestState string

const (
	StateRequested RequestState = "REQUESTED"
	StateApproved  RequestState = "APPROVED"
	StateRejected  RequestState = "REJECTED"
	StateCanceled  RequestState = "CANCELED"
)

// stateRank orders request states so transitions can only move forward.
var stateRank = map[RequestState]int{
	StateRequested: 0,
	StateApproved:  1,
	StateRejected:  1,
	StateCanceled:  1,
}

// CanTransition reports whether a request may move from one state to another.
// REQUESTED is the only non-terminal state.
func CanTransition(from, to RequestState) bool {
	return stateRank[to] > stateRank[from]
}

// MoveRequest is a submitted arm command. Its ID is the caller-supplied
// idempotency key: resubmitting the same ID must be a no-op.
type MoveRequest struct {
	ID            string        `json:"id"`
	State         RequestState  `json:"state"`
	MoveType      MoveType      `json:"move_type"`
	Scope         Scope         `json:"scope"`
	TargetID      string        `json:"target_id,omitempty"`
	TileID        string        `json:"tile_id,omitempty"`
	TTL           time.Duration `json:"ttl"`
	ActorID       string        `json:"actor_id"`
	ActorRole     string        `json:"actor_role,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	CorrelationID string        `json:"correlation_id,omitempty"`
}

// ActiveMove is a move currently in effect, created when a request is
// approved and removed on expiry or an explicit clear.
type ActiveMove struct {
	ID            string    `json:"id"`
	MoveType      MoveType  `json:"move_type"`
	Scope         Scope     `json:"scope"`
	TargetID      string    `json:"target_id,omitempty"`
	TileID        string    `json:"tile_id,omitempty"`
	AppliedAt     time.Time `json:"applied_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	RequestID     string    `json:"request_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Live reports whether the move is still in effect at the given instant.
// Clients filter on this too, so a not-yet-reaped row is never visible.
func (a ActiveMove) Live(now time.Time) bool {
	return a.ExpiresAt.After(now)
}

type DeploymentStatus string

const (
	DeploymentArmed DeploymentStatus = "ARMED"
	DeploymentNone  DeploymentStatus = "NONE"
)

type TileDeployment struct {
	Status    DeploymentStatus `json:"status"`
	MoveType  MoveType         `json:"move_type,omitempty"`
	ExpiresAt time.Time        `json:"expires_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type TargetMove struct {
	MoveType  MoveType  `json:"move_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Overlay is the denormalized snapshot of all live moves for one show.
// It is always recomputed from the full live set, never edited in place.
type Overlay struct {
	DeploymentsByTile map[string]TileDeployment `json:"deployments_by_tile"`
	ActiveByTarget    map[string][]TargetMove   `json:"active_by_target"`
	UpdatedAt         time.Time                 `json:"updated_at"`
	Version           int                       `json:"version"`
}

// EmptyOverlay is the value subscribers fall back to when a read fails.
func EmptyOverlay() Overlay {
	return Overlay{
		DeploymentsByTile: map[string]TileDeployment{},
		ActiveByTarget:    map[string][]TargetMove{},
	}
}

// SortTargetMoves orders a target's moves by expiry so projections of the
// same live set always compare equal.
func SortTargetMoves(ms []TargetMove) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].ExpiresAt.Equal(ms[j].ExpiresAt) {
			return ms[i].MoveType < ms[j].MoveType
		}
		return ms[i].ExpiresAt.Before(ms[j].ExpiresAt)
	})
}

type AuditEventType string

const (
	AuditMoveRequested AuditEventType = "MoveRequested"
	AuditMoveApproved  AuditEventType = "MoveApproved"
	AuditArmoryCleared AuditEventType = "ArmoryCleared"
)

// AuditEntry is an immutable record of a committed transition.
type AuditEntry struct {
	ID             string         `json:"id"`
	EventType      AuditEventType `json:"event_type"`
	Summary        string         `json:"summary"`
	CreatedAt      time.Time      `json:"created_at"`
	CorrelationID  string         `json:"correlation_id,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}
