package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes the chart of accounts over HTTP.
type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

// NewHandler constructs the accounts HTTP handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

type accountResponse struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// List returns the chart of accounts ordered by code.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, accountResponse{ID: a.ID, Code: a.Code, Name: a.Name, IsActive: a.IsActive})
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Get returns one account.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	account, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, ErrAccountNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("get account", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, accountResponse{ID: account.ID, Code: account.Code, Name: account.Name, IsActive: account.IsActive})
}
