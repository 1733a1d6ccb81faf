package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quizwire/moves-backend/internal/gateway"
	"github.com/quizwire/moves-backend/internal/hub"
	"github.com/quizwire/moves-backend/internal/ws"
)

func SetupRoutes(g *gateway.Gateway, h *hub.Hub) http.Handler {
	r := chi.NewRouter()

	r.Post("/games/{gameID}/moves/arm", ArmTile(g))
	r.Post("/games/{gameID}/moves/{requestID}/approve", ApproveMove(g))
	r.Post("/games/{gameID}/moves/clear", ClearArmory(g))
	r.Get("/games/{gameID}/overlay", GetOverlay(g))
	r.Get("/games/{gameID}/audit", GetAuditLog(g))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h))
	return r
}
