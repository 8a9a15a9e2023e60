package findoc

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/compute", h.Compute)
	r.Post("/", h.Issue)
	r.Get("/{id}", h.Get)
}
