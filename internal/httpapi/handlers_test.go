package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizwire/moves-backend/internal/gateway"
	"github.com/quizwire/moves-backend/internal/hub"
	"github.com/quizwire/moves-backend/internal/ledger"
	"github.com/quizwire/moves-backend/pkg/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx)
	g := gateway.New(ledger.NewMemstore(), h, nil, gateway.Options{AutoApprove: true})
	srv := httptest.NewServer(SetupRoutes(g, h))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func TestArmEndpoint_CreatesAndDeduplicates(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/games/g1/moves/arm"

	body := types.ArmRequest{
		TileID:         "q1",
		MoveType:       "DOUBLE_TROUBLE",
		ActorID:        "director-1",
		IdempotencyKey: "k1",
	}

	resp := postJSON(t, url, body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var armed types.ArmResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&armed))
	assert.True(t, armed.Success)
	assert.Equal(t, "k1", armed.ID)
	assert.NotEmpty(t, armed.ActiveID)

	// Retried command: success, no duplicate.
	resp = postJSON(t, url, body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var retried types.ArmResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&retried))
	assert.True(t, retried.Success)
	assert.True(t, retried.AlreadyExisted)
}

func TestArmEndpoint_ConflictMapsTo409(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/games/g1/moves/arm"

	resp := postJSON(t, url, types.ArmRequest{
		TileID: "q1", MoveType: "DOUBLE_TROUBLE", ActorID: "d1", IdempotencyKey: "k1",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, url, types.ArmRequest{
		TileID: "q1", MoveType: "TRIPLE_THREAT", ActorID: "d1", IdempotencyKey: "k2",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var fail types.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fail))
	assert.Equal(t, "CONFLICT", fail.Code)
}

func TestArmEndpoint_ValidationMapsTo400(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/games/g1/moves/arm", types.ArmRequest{TileID: "q1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearEndpoint_ReturnsClearedCount(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/games/g1/moves/arm", types.ArmRequest{
		TileID: "q1", MoveType: "SABOTAGE", ActorID: "d1", IdempotencyKey: "k1",
	})
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/games/g1/moves/clear", types.ClearRequest{ActorID: "d1"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cleared types.ClearResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cleared))
	assert.Equal(t, 1, cleared.ClearedCount)
}

func TestApproveEndpoint_UnknownRequestMapsTo404(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/games/g1/moves/nope/approve", struct{}{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOverlayEndpoint_ReflectsArmedTile(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/games/g1/moves/arm", types.ArmRequest{
		TileID: "q7", MoveType: "MEGA_STEAL", ActorID: "d1", IdempotencyKey: "k1",
	})
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/games/g1/overlay")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var overlay struct {
		DeploymentsByTile map[string]struct {
			Status   string `json:"status"`
			MoveType string `json:"move_type"`
		} `json:"deployments_by_tile"`
		Version int `json:"version"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&overlay))
	assert.Equal(t, 1, overlay.Version)
	assert.Equal(t, "ARMED", overlay.DeploymentsByTile["q7"].Status)
	assert.Equal(t, "MEGA_STEAL", overlay.DeploymentsByTile["q7"].MoveType)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
