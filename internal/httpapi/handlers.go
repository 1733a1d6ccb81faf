package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quizwire/moves-backend/internal/gateway"
	"github.com/quizwire/moves-backend/internal/moves"
	"github.com/quizwire/moves-backend/pkg/types"
)

// httpStatus maps the error taxonomy onto response codes. TRANSIENT maps
// to 503 so resilience wrappers know the command is worth retrying.
func httpStatus(code moves.Code) int {
	switch code {
	case moves.CodeInvalidArgument:
		return http.StatusBadRequest
	case moves.CodeNotFound:
		return http.StatusNotFound
	case moves.CodeConflict:
		return http.StatusConflict
	case moves.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case moves.CodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := moves.CodeOf(err)
	writeJSON(w, httpStatus(code), types.ErrorResponse{Code: string(code), Error: err.Error()})
}

func ArmTile(g *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body types.ArmRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, moves.Errorf(moves.CodeInvalidArgument, "bad json"))
			return
		}

		res, err := g.ArmTile(r.Context(), gateway.ArmParams{
			GameID:         chi.URLParam(r, "gameID"),
			TileID:         body.TileID,
			MoveType:       moves.MoveType(body.MoveType),
			ActorID:        body.ActorID,
			ActorRole:      body.ActorRole,
			IdempotencyKey: body.IdempotencyKey,
			CorrelationID:  body.CorrelationID,
			TTL:            time.Duration(body.TTLMillis) * time.Millisecond,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		status := http.StatusCreated
		if res.AlreadyExisted {
			status = http.StatusOK
		}
		writeJSON(w, status, types.ArmResponse{
			Success:        true,
			ID:             res.ID,
			ActiveID:       res.ActiveID,
			AlreadyExisted: res.AlreadyExisted,
		})
	}
}

func ApproveMove(g *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeID, err := g.ApproveMove(r.Context(),
			chi.URLParam(r, "gameID"),
			chi.URLParam(r, "requestID"),
			r.URL.Query().Get("correlation_id"),
		)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ApproveResponse{Success: true, ActiveID: activeID})
	}
}

func ClearArmory(g *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body types.ClearRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, moves.Errorf(moves.CodeInvalidArgument, "bad json"))
			return
		}

		cleared, err := g.ClearArmory(r.Context(),
			chi.URLParam(r, "gameID"), body.ActorID, body.IdempotencyKey, body.CorrelationID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ClearResponse{Success: true, ClearedCount: cleared})
	}
}

func GetOverlay(g *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := g.CurrentOverlay(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func GetAuditLog(g *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := g.AuditLog(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
