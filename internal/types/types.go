package types

import "github.com/quizwire/moves-backend/internal/moves"

type ClientMessage struct {
	Type string `json:"type"`
}

type ServerMessage struct {
	Type    string         `json:"type"` // "OverlaySnapshot" | "Error"
	Version int            `json:"version,omitempty"`
	Overlay *moves.Overlay `json:"overlay,omitempty"`
	Error   string         `json:"error,omitempty"`
}
