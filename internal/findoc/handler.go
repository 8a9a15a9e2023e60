package findoc

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/numbering"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes document computation and issuance over HTTP.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs the document HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

type lineRequest struct {
	Description  string `json:"description"`
	Quantity     string `json:"quantity" validate:"required"`
	UnitPrice    string `json:"unit_price" validate:"required"`
	DiscountRate string `json:"discount_rate"`
	TaxRate      string `json:"tax_rate"`
}

type computeRequest struct {
	Lines            []lineRequest `json:"lines" validate:"required,min=1,dive"`
	DocumentDiscount string        `json:"document_discount"`
}

type issueRequest struct {
	computeRequest
	Type    string `json:"type" validate:"required,oneof=QUOTE SALES_INVOICE PURCHASE_INVOICE"`
	PartyID int64  `json:"party_id" validate:"required,gt=0"`
	ActorID int64  `json:"actor_id" validate:"required,gt=0"`
}

type lineResponse struct {
	Description    string `json:"description,omitempty"`
	Subtotal       string `json:"subtotal"`
	DiscountAmount string `json:"discount_amount"`
	TaxableBase    string `json:"taxable_base"`
	TaxAmount      string `json:"tax_amount"`
	LineTotal      string `json:"line_total"`
}

type totalsResponse struct {
	Subtotal          string `json:"subtotal"`
	LineDiscountTotal string `json:"line_discount_total"`
	DocumentDiscount  string `json:"document_discount"`
	TaxTotal          string `json:"tax_total"`
	Total             string `json:"total"`
}

type computeResponse struct {
	Lines  []lineResponse `json:"lines"`
	Totals totalsResponse `json:"totals"`
}

type issueResponse struct {
	ID              int64          `json:"id"`
	Type            string         `json:"type"`
	Number          int64          `json:"number"`
	NumberFormatted string         `json:"number_formatted"`
	Status          string         `json:"status"`
	Totals          totalsResponse `json:"totals"`
}

func parseAmount(field, raw string, fallbackZero bool) (decimal.Decimal, error) {
	if raw == "" {
		if fallbackZero {
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, fmt.Errorf("%s required", field)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: invalid amount %q", field, raw)
	}
	return d, nil
}

func (req computeRequest) toInputs() ([]LineInput, decimal.Decimal, error) {
	lines := make([]LineInput, 0, len(req.Lines))
	for i, lr := range req.Lines {
		qty, err := parseAmount(fmt.Sprintf("lines[%d].quantity", i), lr.Quantity, false)
		if err != nil {
			return nil, decimal.Decimal{}, err
		}
		price, err := parseAmount(fmt.Sprintf("lines[%d].unit_price", i), lr.UnitPrice, false)
		if err != nil {
			return nil, decimal.Decimal{}, err
		}
		discount, err := parseAmount(fmt.Sprintf("lines[%d].discount_rate", i), lr.DiscountRate, true)
		if err != nil {
			return nil, decimal.Decimal{}, err
		}
		tax, err := parseAmount(fmt.Sprintf("lines[%d].tax_rate", i), lr.TaxRate, true)
		if err != nil {
			return nil, decimal.Decimal{}, err
		}
		lines = append(lines, LineInput{
			Description:  lr.Description,
			Quantity:     qty,
			UnitPrice:    price,
			DiscountRate: discount,
			TaxRate:      tax,
		})
	}
	docDiscount, err := parseAmount("document_discount", req.DocumentDiscount, true)
	if err != nil {
		return nil, decimal.Decimal{}, err
	}
	return lines, docDiscount, nil
}

func toLineResponses(lines []LineTotals) []lineResponse {
	out := make([]lineResponse, 0, len(lines))
	for _, lt := range lines {
		out = append(out, lineResponse{
			Description:    lt.Description,
			Subtotal:       lt.Subtotal.String(),
			DiscountAmount: lt.DiscountAmount.String(),
			TaxableBase:    lt.TaxableBase.String(),
			TaxAmount:      lt.TaxAmount.String(),
			LineTotal:      lt.LineTotal.String(),
		})
	}
	return out
}

func toTotalsResponse(t DocumentTotals) totalsResponse {
	return totalsResponse{
		Subtotal:          t.Subtotal.String(),
		LineDiscountTotal: t.LineDiscountTotal.String(),
		DocumentDiscount:  t.DocumentDiscount.String(),
		TaxTotal:          t.TaxTotal.String(),
		Total:             t.Total.String(),
	}
}

// Compute previews line and document totals without persisting.
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines, docDiscount, err := req.toInputs()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	totals, rounded, err := h.service.Preview(lines, docDiscount)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, computeResponse{
		Lines:  toLineResponses(rounded),
		Totals: toTotalsResponse(totals),
	})
}

// Issue numbers and persists a document.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines, docDiscount, err := req.toInputs()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	doc, err := h.service.Issue(r.Context(), IssueInput{
		Type:             DocumentType(req.Type),
		PartyID:          req.PartyID,
		Lines:            lines,
		DocumentDiscount: docDiscount,
		ActorID:          req.ActorID,
		IdempotencyKey:   r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, issueResponse{
		ID:              doc.ID,
		Type:            string(doc.Type),
		Number:          doc.Number,
		NumberFormatted: doc.NumberFormatted,
		Status:          string(doc.Status),
		Totals:          toTotalsResponse(doc.Totals),
	})
}

// Get returns one document with its lines.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document id")
		return
	}
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, issueResponse{
		ID:              doc.ID,
		Type:            string(doc.Type),
		Number:          doc.Number,
		NumberFormatted: doc.NumberFormatted,
		Status:          string(doc.Status),
		Totals:          toTotalsResponse(doc.Totals),
	})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidRate), errors.Is(err, ErrNoLines):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNegativeTotal):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Negative Total", err.Error())
	case errors.Is(err, ErrDocumentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDocumentFinalized):
		httpx.Problem(w, http.StatusConflict, "Document Finalized", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, numbering.ErrUnknownDocumentType):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, numbering.ErrDocumentTypeDisabled):
		httpx.Problem(w, http.StatusConflict, "Document Type Disabled", err.Error())
	case errors.Is(err, numbering.ErrAllocationTimeout):
		httpx.Problem(w, http.StatusGatewayTimeout, "Allocation Timeout", err.Error())
	default:
		h.logger.Error("document request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
