// Package show runs one fan-out actor per live show. The actor owns the
// latest overlay snapshot and pushes full replacements to every subscribed
// display. Subscribers always receive the current snapshot synchronously on
// join, so a viewer never renders an empty flash.
package show

import (
	"context"

	"github.com/quizwire/moves-backend/internal/moves"
)

type Msg interface{ isShowMsg() }

// Publish replaces the overlay and broadcasts it.
type Publish struct {
	Overlay moves.Overlay
}

func (Publish) isShowMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this subscriber wants to receive snapshots
}

func (Join) isShowMsg() {}

type Leave struct{ ClientID string }

func (Leave) isShowMsg() {}

type Shutdown struct{}

func (Shutdown) isShowMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isShowMsg() {}

type Snapshot struct {
	Overlay moves.Overlay
}

// View reflects internal state for tests without data races.
type View struct {
	Version        int
	NumSubscribers int
	Overlay        moves.Overlay
}

type Show struct {
	inbox   chan Msg
	overlay moves.Overlay
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewShow(parent context.Context, initial moves.Overlay) *Show {
	ctx, cancel := context.WithCancel(parent)

	s := &Show{
		inbox:   make(chan Msg, 64),
		overlay: initial,
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
	}

	go s.loop()
	return s
}

func (s *Show) Inbox() chan<- Msg { return s.inbox }

func (s *Show) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Register subscriber + send the current snapshot immediately.
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Overlay: s.overlay}

			case Leave:
				// Close the outbox so the connection's writer goroutine
				// draining it terminates with the subscription.
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case Publish:
				// Stale publishes can arrive out of order when two commands
				// race; the version guard keeps the newest overlay.
				if msg.Overlay.Version < s.overlay.Version {
					break
				}
				s.overlay = msg.Overlay
				s.broadcast(Snapshot{Overlay: s.overlay})

			case GetState:
				msg.Reply <- View{
					Version:        s.overlay.Version,
					NumSubscribers: len(s.clients),
					Overlay:        s.overlay,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Show) shutdown() {
	for id, ch := range s.clients {
		close(ch) // Tell subscriber no more snapshots
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Show) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
			// ok
		default:
			// Subscriber is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
		}
	}
}
