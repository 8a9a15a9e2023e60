package numbering

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{documentType}/allocate", h.Allocate)
}
