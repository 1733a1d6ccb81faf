// Package hub is the registry actor mapping game IDs to show actors.
package hub

import (
	"context"

	"github.com/quizwire/moves-backend/internal/moves"
	"github.com/quizwire/moves-backend/internal/show"
)

type HubMsg interface{ isHubMsg() }

type CreateShow struct {
	GameID  string
	Overlay moves.Overlay
	Reply   chan *show.Show
}

type GetShow struct {
	GameID string
	Reply  chan *show.Show
}

type EnsureShow struct {
	GameID  string
	Overlay moves.Overlay // only used if creation happens
	Reply   chan *show.Show
}

type RemoveShow struct {
	GameID string
}

type ShutdownHub struct{}

func (CreateShow) isHubMsg()  {}
func (GetShow) isHubMsg()     {}
func (EnsureShow) isHubMsg()  {}
func (RemoveShow) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox  chan HubMsg
	shows  map[string]*show.Show
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		shows:  map[string]*show.Show{},
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// PublishOverlay implements the gateway's Publisher: it routes a rebuilt
// overlay to the show actor for the game, creating the actor on first use
// so a display joining before the first command still gets snapshots.
func (h *Hub) PublishOverlay(gameID string, o moves.Overlay) {
	reply := make(chan *show.Show, 1)
	h.inbox <- EnsureShow{GameID: gameID, Overlay: o, Reply: reply}
	if s := <-reply; s != nil {
		s.Inbox() <- show.Publish{Overlay: o}
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateShow:
				if s := h.shows[msg.GameID]; s != nil {
					msg.Reply <- s
					break
				}
				s := show.NewShow(h.ctx, msg.Overlay)
				h.shows[msg.GameID] = s
				msg.Reply <- s

			case GetShow:
				msg.Reply <- h.shows[msg.GameID] // May be nil

			case EnsureShow:
				if s := h.shows[msg.GameID]; s != nil {
					msg.Reply <- s
					break
				}

				s := show.NewShow(h.ctx, msg.Overlay)
				h.shows[msg.GameID] = s
				msg.Reply <- s

			case RemoveShow:
				delete(h.shows, msg.GameID)

			case ShutdownHub:
				for _, s := range h.shows {
					s.Inbox() <- show.Shutdown{}
				}
				clear(h.shows)
				h.cancel()
			}
		}
	}
}
