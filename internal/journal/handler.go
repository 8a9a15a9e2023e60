package journal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes journal entries over HTTP.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs the journal HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

type lineRequest struct {
	AccountID int64  `json:"account_id" validate:"required,gt=0"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
}

type draftRequest struct {
	Date    string        `json:"date" validate:"required"`
	Memo    string        `json:"memo"`
	ActorID int64         `json:"actor_id" validate:"required,gt=0"`
	Lines   []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type updateLinesRequest struct {
	Lines []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type transitionRequest struct {
	Target  string `json:"target" validate:"required,oneof=APPROVED POSTED CANCELLED"`
	ActorID int64  `json:"actor_id" validate:"required,gt=0"`
}

type reverseRequest struct {
	ActorID int64  `json:"actor_id" validate:"required,gt=0"`
	Memo    string `json:"memo"`
}

type lineResponse struct {
	AccountID int64  `json:"account_id"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
}

type entryResponse struct {
	ID         int64          `json:"id"`
	Number     int64          `json:"number"`
	Date       string         `json:"date"`
	Memo       string         `json:"memo,omitempty"`
	Status     string         `json:"status"`
	Lines      []lineResponse `json:"lines,omitempty"`
	ReversalOf *int64         `json:"reversal_of,omitempty"`
}

func parseLines(reqs []lineRequest) ([]Line, error) {
	lines := make([]Line, 0, len(reqs))
	for i, lr := range reqs {
		debit, err := parseSide(fmt.Sprintf("lines[%d].debit", i), lr.Debit)
		if err != nil {
			return nil, err
		}
		credit, err := parseSide(fmt.Sprintf("lines[%d].credit", i), lr.Credit)
		if err != nil {
			return nil, err
		}
		lines = append(lines, Line{AccountID: lr.AccountID, Debit: debit, Credit: credit})
	}
	return lines, nil
}

func parseSide(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: invalid amount %q", field, raw)
	}
	return d, nil
}

func toEntryResponse(entry Entry) entryResponse {
	resp := entryResponse{
		ID:         entry.ID,
		Number:     entry.Number,
		Date:       entry.Date.Format("2006-01-02"),
		Memo:       entry.Memo,
		Status:     string(entry.Status),
		ReversalOf: entry.ReversalOf,
	}
	for _, line := range entry.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			AccountID: line.AccountID,
			Debit:     line.Debit.String(),
			Credit:    line.Credit.String(),
		})
	}
	return resp
}

// CreateDraft opens a new draft entry.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	lines, err := parseLines(req.Lines)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	entry, err := h.service.CreateDraft(r.Context(), DraftInput{
		Date:    date,
		Memo:    req.Memo,
		ActorID: req.ActorID,
		Lines:   lines,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

// UpdateLines replaces a draft entry's lines.
func (h *Handler) UpdateLines(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var req updateLinesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines, err := parseLines(req.Lines)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	entry, err := h.service.UpdateLines(r.Context(), id, lines)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

// Transition moves an entry to the requested status.
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	entry, err := h.service.Transition(r.Context(), TransitionInput{
		EntryID: id,
		Target:  Status(req.Target),
		ActorID: req.ActorID,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

// Reverse posts a balancing entry against a posted one.
func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var req reverseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	entry, err := h.service.Reverse(r.Context(), ReverseInput{
		EntryID: id,
		ActorID: req.ActorID,
		Memo:    req.Memo,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

// Get returns one entry with its lines.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

// List returns all entries without lines.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toEntryResponse(entry))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func entryID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid entry id")
	}
	return id, nil
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTooFewLines), errors.Is(err, ErrInvalidLine), errors.Is(err, ErrMissingAccount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnbalanced):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unbalanced Entry", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrEntryImmutable):
		httpx.Problem(w, http.StatusConflict, "Entry Immutable", err.Error())
	case errors.Is(err, ErrEntryNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidationTimeout):
		httpx.Problem(w, http.StatusGatewayTimeout, "Validation Timeout", err.Error())
	default:
		h.logger.Error("journal request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
