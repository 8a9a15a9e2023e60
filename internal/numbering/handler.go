package numbering

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes allocation over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the numbering HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

type allocateResponse struct {
	DocumentType string `json:"document_type"`
	Number       int64  `json:"number"`
	Formatted    string `json:"formatted"`
}

// Allocate reserves the next number for the document type in the URL.
func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	documentType := chi.URLParam(r, "documentType")
	if documentType == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "document type required")
		return
	}

	alloc, err := h.service.Allocate(r.Context(), documentType)
	switch {
	case errors.Is(err, ErrUnknownDocumentType):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	case errors.Is(err, ErrDocumentTypeDisabled):
		httpx.Problem(w, http.StatusConflict, "Document Type Disabled", err.Error())
		return
	case errors.Is(err, ErrAllocationTimeout):
		httpx.Problem(w, http.StatusGatewayTimeout, "Allocation Timeout", err.Error())
		return
	case err != nil:
		h.logger.Error("allocate number", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusCreated, allocateResponse{
		DocumentType: alloc.DocumentType,
		Number:       alloc.Value,
		Formatted:    alloc.Formatted,
	})
}
