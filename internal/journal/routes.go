package journal

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.CreateDraft)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/lines", h.UpdateLines)
	r.Post("/{id}/transition", h.Transition)
	r.Post("/{id}/reverse", h.Reverse)
}
