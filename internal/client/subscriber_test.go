package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizwire/moves-backend/internal/hub"
	"github.com/quizwire/moves-backend/internal/moves"
	"github.com/quizwire/moves-backend/internal/ws"
)

func recvOverlay(t *testing.T, ch <-chan moves.Overlay, within time.Duration) moves.Overlay {
	t.Helper()
	select {
	case o, ok := <-ch:
		if !ok {
			t.Fatalf("subscription channel closed unexpectedly")
		}
		return o
	case <-time.After(within):
		t.Fatalf("timed out waiting for overlay")
		return moves.Overlay{} // unreachable
	}
}

func TestSubscriber_SnapshotOnSubscribeThenPushes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := hub.NewHub(ctx)
	srv := httptest.NewServer(ws.Handler(h))
	defer srv.Close()

	sub := NewSubscriber(srv.URL+"?game=g1", nil, SubscriberOptions{RedialGap: 10 * time.Millisecond})
	ch := sub.Subscribe(ctx)

	// The current snapshot arrives first, before any command ran.
	first := recvOverlay(t, ch, time.Second)
	assert.Equal(t, 0, first.Version)
	assert.Empty(t, first.DeploymentsByTile)

	o := moves.EmptyOverlay()
	o.Version = 1
	o.DeploymentsByTile["q1"] = moves.TileDeployment{Status: moves.DeploymentArmed, MoveType: moves.MoveTripleThreat}
	h.PublishOverlay("g1", o)

	next := recvOverlay(t, ch, time.Second)
	require.Equal(t, 1, next.Version)
	assert.Equal(t, moves.MoveTripleThreat, next.DeploymentsByTile["q1"].MoveType)
}

func TestSubscriber_FailOpenOnSubscribeError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(nil)
	url := srv.URL + "?game=g1"
	srv.Close() // subscription target is gone

	sub := NewSubscriber(url, nil, SubscriberOptions{RedialGap: 50 * time.Millisecond})
	ch := sub.Subscribe(ctx)

	o := recvOverlay(t, ch, time.Second)
	assert.Empty(t, o.DeploymentsByTile, "read errors degrade to the empty overlay")
	assert.NotNil(t, o.DeploymentsByTile, "empty overlay is explicit, not nil maps")
}

func TestSubscriber_ChannelClosesOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	srv := httptest.NewServer(nil)
	url := srv.URL + "?game=g1"
	srv.Close()

	sub := NewSubscriber(url, nil, SubscriberOptions{RedialGap: time.Hour})
	ch := sub.Subscribe(ctx)
	recvOverlay(t, ch, time.Second) // the fail-open empty overlay

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close after cancel")
	case <-time.After(time.Second):
		t.Fatalf("channel did not close after context cancel")
	}
}
