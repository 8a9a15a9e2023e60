package findoc

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentType enumerates numbered financial record categories.
type DocumentType string

const (
	TypeQuote           DocumentType = "QUOTE"
	TypeSalesInvoice    DocumentType = "SALES_INVOICE"
	TypePurchaseInvoice DocumentType = "PURCHASE_INVOICE"
)

// DocumentStatus enumerates document lifecycle values. Issued documents are
// frozen; corrections require a compensating document.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "DRAFT"
	StatusIssued    DocumentStatus = "ISSUED"
	StatusCancelled DocumentStatus = "CANCELLED"
)

// Document owns an ordered sequence of lines plus a document-level discount.
// Totals are derived; they are recomputed from the lines, never edited.
type Document struct {
	ID               int64
	SourceID         uuid.UUID
	Type             DocumentType
	Number           int64
	NumberFormatted  string
	PartyID          int64
	Status           DocumentStatus
	DocumentDiscount decimal.Decimal
	Totals           DocumentTotals
	Lines            []LineTotals
	IssuedAt         *time.Time
	CreatedBy        int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

var (
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("findoc: quantity must be positive")
	// ErrInvalidRate indicates a price or rate outside its valid range.
	ErrInvalidRate = errors.New("findoc: rate out of range")
	// ErrNegativeTotal indicates the document-level discount pushed the total
	// below zero, which points at a data error upstream.
	ErrNegativeTotal = errors.New("findoc: total would be negative")
	// ErrNoLines indicates a document without any lines.
	ErrNoLines = errors.New("findoc: document requires at least one line")
	// ErrDocumentFinalized indicates a mutation attempt on an issued document.
	ErrDocumentFinalized = errors.New("findoc: document is finalized")
	// ErrDocumentNotFound indicates a missing document.
	ErrDocumentNotFound = errors.New("findoc: document not found")
)
