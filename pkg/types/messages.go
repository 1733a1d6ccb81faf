// Package types holds the wire-level shapes shared between the server's
// HTTP command surface and outbound clients (director console, displays).
package types

// ArmRequest is the body of POST /games/{gameID}/moves/arm.
type ArmRequest struct {
	TileID         string `json:"tile_id"`
	MoveType       string `json:"move_type"`
	ActorID        string `json:"actor_id"`
	ActorRole      string `json:"actor_role,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
	CorrelationID  string `json:"correlation_id,omitempty"`
	TTLMillis      int64  `json:"ttl_ms,omitempty"`
}

type ArmResponse struct {
	Success        bool   `json:"success"`
	ID             string `json:"id"`
	ActiveID       string `json:"active_id,omitempty"`
	AlreadyExisted bool   `json:"already_existed,omitempty"`
}

// ApproveResponse is the body returned by
// POST /games/{gameID}/moves/{requestID}/approve.
type ApproveResponse struct {
	Success  bool   `json:"success"`
	ActiveID string `json:"active_id"`
}

// ClearRequest is the body of POST /games/{gameID}/moves/clear.
type ClearRequest struct {
	ActorID        string `json:"actor_id"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	CorrelationID  string `json:"correlation_id,omitempty"`
}

type ClearResponse struct {
	Success      bool `json:"success"`
	ClearedCount int  `json:"cleared_count"`
}

// ErrorResponse carries the taxonomy code alongside the message so clients
// can decide whether a retry is worthwhile.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
