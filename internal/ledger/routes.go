package ledger

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/bonds", h.Record)
	r.Post("/bonds/{id}/post", h.Post)
	r.Post("/bonds/{id}/cancel", h.Cancel)
	r.Get("/parties/{partyID}/balance", h.Balance)
	r.Get("/parties/{partyID}/statement", h.Statement)
	r.Get("/parties/{partyID}/summary", h.Summary)
}
