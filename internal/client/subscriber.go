package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/quizwire/moves-backend/internal/moves"
	"github.com/quizwire/moves-backend/internal/types"
)

// Subscriber consumes the overlay push subscription for one display.
// The read path is fail-open: any subscribe or read error yields an
// explicit empty overlay instead of propagating into rendering.
type Subscriber struct {
	url       string
	log       *zap.Logger
	redialGap time.Duration
}

type SubscriberOptions struct {
	// RedialGap is the pause before re-dialing a broken subscription
	// (default 2s).
	RedialGap time.Duration
}

func NewSubscriber(url string, log *zap.Logger, opts SubscriberOptions) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RedialGap <= 0 {
		opts.RedialGap = 2 * time.Second
	}
	return &Subscriber{url: url, log: log, redialGap: opts.RedialGap}
}

// Subscribe returns a channel of overlay snapshots: the current snapshot
// arrives first, then full replacements. The channel closes when ctx is
// done. Errors never surface; they degrade to the empty overlay.
func (s *Subscriber) Subscribe(ctx context.Context) <-chan moves.Overlay {
	out := make(chan moves.Overlay, 8)
	go s.run(ctx, out)
	return out
}

func (s *Subscriber) run(ctx context.Context, out chan<- moves.Overlay) {
	defer close(out)

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.Dial(ctx, s.url, nil)
		if err != nil {
			s.log.Warn("overlay subscription failed, rendering empty overlay", zap.Error(err))
			if !s.emit(ctx, out, moves.EmptyOverlay()) {
				return
			}
			if !s.sleep(ctx) {
				return
			}
			continue
		}

		s.readLoop(ctx, conn, out)
		conn.Close(websocket.StatusNormalClosure, "resubscribing")

		if ctx.Err() != nil {
			return
		}
		if !s.emit(ctx, out, moves.EmptyOverlay()) {
			return
		}
		if !s.sleep(ctx) {
			return
		}
	}
}

func (s *Subscriber) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- moves.Overlay) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("overlay subscription read failed", zap.Error(err))
			}
			return
		}

		var msg types.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Overlay == nil {
			s.log.Warn("dropping malformed overlay message", zap.Error(err))
			continue
		}
		if !s.emit(ctx, out, *msg.Overlay) {
			return
		}
	}
}

func (s *Subscriber) emit(ctx context.Context, out chan<- moves.Overlay, o moves.Overlay) bool {
	select {
	case out <- o:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Subscriber) sleep(ctx context.Context) bool {
	select {
	case <-time.After(s.redialGap):
		return true
	case <-ctx.Done():
		return false
	}
}
