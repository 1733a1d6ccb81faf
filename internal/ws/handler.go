package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/quizwire/moves-backend/internal/hub"
	"github.com/quizwire/moves-backend/internal/moves"
	"github.com/quizwire/moves-backend/internal/show"
	"github.com/quizwire/moves-backend/internal/types"
)

// Handler opens one overlay subscription per connection. The subscriber
// receives the current snapshot synchronously on join, then a stream of
// full replacements. Commands never travel over this socket; they go
// through the HTTP surface.
func Handler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := r.URL.Query().Get("game")
		if gameID == "" {
			http.Error(w, "missing game", http.StatusBadRequest)
			return
		}

		// Ensure rather than Get: a display may subscribe before the
		// director has issued the first command.
		reply := make(chan *show.Show, 1)
		h.Inbox() <- hub.EnsureShow{GameID: gameID, Overlay: moves.EmptyOverlay(), Reply: reply}
		s := <-reply
		if s == nil {
			http.Error(w, "show not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan show.Snapshot, 8)
		clientID := randID(6)

		s.Inbox() <- show.Join{ClientID: clientID, Outbox: out}
		defer func() { s.Inbox() <- show.Leave{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				overlay := snap.Overlay
				msg := types.ServerMessage{Type: "OverlaySnapshot", Version: overlay.Version, Overlay: &overlay}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop: the subscription is one-way, so reads exist only to
		// notice the peer going away.
		for {
			_, _, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}
		}
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
