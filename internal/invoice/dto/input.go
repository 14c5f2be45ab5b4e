package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-invoice-service/internal/invoice/amount"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type LineInput struct {
	Description string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
	VATRate     decimal.Decimal
	CategoryID  *string
}

type CreateInvoiceInput struct {
	CompanyID        string
	CreatedBy        string
	Type             model.InvoiceType
	Number           string
	CounterpartyName string
	CounterpartyVAT  string
	IssueDate        time.Time
	DueDate          *time.Time
	Currency         string
	DocumentURL      string
	Notes            string
	Lines            []LineInput
}

type UpdateInvoiceInput struct {
	ID               string
	CompanyID        string
	Type             model.InvoiceType
	Number           string
	CounterpartyName string
	CounterpartyVAT  string
	IssueDate        time.Time
	DueDate          *time.Time
	Currency         string
	Notes            string
}

// CalculateLineInput accepts whatever a half-filled form holds.
type CalculateLineInput struct {
	Quantity  amount.Lenient `json:"quantity"`
	UnitPrice amount.Lenient `json:"unit_price"`
	VATRate   amount.Lenient `json:"vat_rate"`
}

type CalculateInput struct {
	Lines []CalculateLineInput `json:"lines"`
}

// RegisterUploadInput is a scanned document waiting to be keyed in.
type RegisterUploadInput struct {
	CompanyID   string
	Type        model.InvoiceType
	DocumentURL string
	UploadedBy  string
	FileName    string
}

type ExportInput struct {
	Filters InvoiceFilters
	// Mark moves exported invoices that were reviewed to exported.
	Mark bool
}
