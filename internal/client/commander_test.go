package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizwire/moves-backend/internal/moves"
	"github.com/quizwire/moves-backend/pkg/types"
)

func fastOptions() CommanderOptions {
	return CommanderOptions{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		HTTPClient:     &http.Client{Timeout: time.Second},
	}
}

func armReq() types.ArmRequest {
	return types.ArmRequest{
		TileID: "q1", MoveType: "DOUBLE_TROUBLE", ActorID: "d1", IdempotencyKey: "k1",
	}
}

func TestCommander_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(types.ErrorResponse{Code: "TRANSIENT", Error: "store unavailable"})
			return
		}
		_ = json.NewEncoder(w).Encode(types.ArmResponse{Success: true, ID: "k1", ActiveID: "a1"})
	}))
	defer srv.Close()

	c := NewCommander(srv.URL, nil, fastOptions())
	res, err := c.ArmTile(context.Background(), "g1", armReq())
	require.NoError(t, err)
	assert.Equal(t, "k1", res.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, Healthy, c.Health())
}

func TestCommander_NoRetryOnConflict(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(types.ErrorResponse{Code: "CONFLICT", Error: "tile armed"})
	}))
	defer srv.Close()

	c := NewCommander(srv.URL, nil, fastOptions())
	_, err := c.ArmTile(context.Background(), "g1", armReq())
	require.Error(t, err)
	assert.Equal(t, moves.CodeConflict, moves.CodeOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "non-transient errors never retry")
}

func TestCommander_ExhaustedRetriesSurfaceTransient(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewCommander(srv.URL, nil, fastOptions())
	_, err := c.ArmTile(context.Background(), "g1", armReq())
	require.Error(t, err)
	assert.Equal(t, moves.CodeTransient, moves.CodeOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "bounded at 3 attempts")
}

func TestCommander_HealthSignalTransitions(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			_ = json.NewEncoder(w).Encode(types.ClearResponse{Success: true})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewCommander(srv.URL, nil, CommanderOptions{
		MaxAttempts:    1,
		InitialBackoff: time.Millisecond,
		HTTPClient:     &http.Client{Timeout: time.Second},
	})
	ctx := context.Background()

	assert.Equal(t, Healthy, c.Health())

	_, _ = c.ClearArmory(ctx, "g1", types.ClearRequest{ActorID: "d1"})
	assert.Equal(t, Degraded, c.Health(), "1 failure => DEGRADED")

	_, _ = c.ClearArmory(ctx, "g1", types.ClearRequest{ActorID: "d1"})
	assert.Equal(t, Degraded, c.Health(), "2 failures => still DEGRADED")

	_, _ = c.ClearArmory(ctx, "g1", types.ClearRequest{ActorID: "d1"})
	assert.Equal(t, Offline, c.Health(), "3 failures => OFFLINE")

	healthy.Store(true)
	_, err := c.ClearArmory(ctx, "g1", types.ClearRequest{ActorID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, Healthy, c.Health(), "any success resets to HEALTHY")
}

func TestCommander_InstancesDoNotShareHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewCommander(srv.URL, nil, CommanderOptions{MaxAttempts: 1, InitialBackoff: time.Millisecond})
	b := NewCommander(srv.URL, nil, CommanderOptions{MaxAttempts: 1, InitialBackoff: time.Millisecond})

	_, _ = a.ClearArmory(context.Background(), "g1", types.ClearRequest{ActorID: "d1"})
	assert.Equal(t, Degraded, a.Health())
	assert.Equal(t, Healthy, b.Health(), "health is per session instance")
}

func TestCommander_UnreachableServerIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewCommander(srv.URL, nil, CommanderOptions{MaxAttempts: 2, InitialBackoff: time.Millisecond})
	_, err := c.ArmTile(context.Background(), "g1", armReq())
	require.Error(t, err)
	assert.Equal(t, moves.CodeTransient, moves.CodeOf(err))
}
