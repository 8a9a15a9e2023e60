package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes party ledgers over HTTP.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs the ledger HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

type recordRequest struct {
	PartyID int64  `json:"party_id" validate:"required,gt=0"`
	Type    string `json:"type" validate:"required,oneof=RECEIPT PAYMENT"`
	Amount  string `json:"amount" validate:"required"`
	Date    string `json:"date" validate:"required"`
	Memo    string `json:"memo"`
	ActorID int64  `json:"actor_id" validate:"required,gt=0"`
}

type actorRequest struct {
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

type bondResponse struct {
	ID      int64  `json:"id"`
	Number  int64  `json:"number"`
	PartyID int64  `json:"party_id"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	Amount  string `json:"amount"`
	Date    string `json:"date"`
	Memo    string `json:"memo,omitempty"`
}

type balanceResponse struct {
	PartyID    int64  `json:"party_id"`
	Convention string `json:"convention"`
	Net        string `json:"net"`
}

type statementLine struct {
	Bond    bondResponse `json:"bond"`
	Delta   string       `json:"delta"`
	Balance string       `json:"balance"`
}

type summaryResponse struct {
	PartyID  int64  `json:"party_id"`
	Receipts string `json:"receipts"`
	Payments string `json:"payments"`
	Net      string `json:"net"`
}

func toBondResponse(bond Bond) bondResponse {
	return bondResponse{
		ID:      bond.ID,
		Number:  bond.Number,
		PartyID: bond.PartyID,
		Type:    string(bond.Type),
		Status:  string(bond.Status),
		Amount:  bond.Amount.String(),
		Date:    bond.Date.Format("2006-01-02"),
		Memo:    bond.Memo,
	}
}

// Record opens a draft bond.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount: invalid decimal")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	bond, err := h.service.Record(r.Context(), RecordInput{
		PartyID: req.PartyID,
		Type:    BondType(req.Type),
		Amount:  amount,
		Date:    date,
		Memo:    req.Memo,
		ActorID: req.ActorID,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toBondResponse(bond))
}

// Post posts a draft bond.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Post)
}

// Cancel cancels a draft bond.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Cancel)
}

// Balance returns the party's net position over posted bonds.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathID(r, "partyID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	net, err := h.service.NetBalance(r.Context(), partyID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{
		PartyID:    partyID,
		Convention: h.service.tracker.Convention().Name(),
		Net:        net.String(),
	})
}

// Statement returns the date-ordered running balance.
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathID(r, "partyID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	points, err := h.service.Statement(r.Context(), partyID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	out := make([]statementLine, 0, len(points))
	for _, p := range points {
		out = append(out, statementLine{
			Bond:    toBondResponse(p.Bond),
			Delta:   p.Delta.String(),
			Balance: p.Balance.String(),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Summary returns receipts, payments and net in one response.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathID(r, "partyID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	summary, err := h.service.Summarize(r.Context(), partyID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summaryResponse{
		PartyID:  summary.PartyID,
		Receipts: summary.Receipts.String(),
		Payments: summary.Payments.String(),
		Net:      summary.Net.String(),
	})
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, bondID, actorID int64) (Bond, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var req actorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	bond, err := apply(r.Context(), id, req.ActorID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBondResponse(bond))
}

func parseDate(raw string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD")
	}
	return date, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownBondType), errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrBondNotDraft):
		httpx.Problem(w, http.StatusConflict, "Bond Not Draft", err.Error())
	case errors.Is(err, ErrPartyNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
