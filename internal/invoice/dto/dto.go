package dto

import (
	"time"

	"github.com/fekuna/omnipos-invoice-service/internal/invoice/amount"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type InvoiceFilters struct {
	CompanyID   string
	Type        model.InvoiceType   // empty means any
	Status      model.InvoiceStatus // empty means any
	IssuedFrom  *time.Time
	IssuedTo    *time.Time
	SearchQuery string // number, counterparty or notes
	Page        int
	PageSize    int
}

type InvoiceList struct {
	Invoices []model.Invoice `json:"invoices"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// CalculatedLine is a preview line with its derived amounts.
type CalculatedLine struct {
	Quantity  amount.Lenient `json:"quantity"`
	UnitPrice amount.Lenient `json:"unit_price"`
	VATRate   amount.Lenient `json:"vat_rate"`
	amount.Amounts
	StandardRate bool `json:"standard_rate"`
}

type CalculateResult struct {
	Lines []CalculatedLine `json:"lines"`
	amount.Totals
}

type ExportResult struct {
	Rows     int      `json:"rows"`
	Invoices int      `json:"invoices"`
	Marked   []string `json:"marked"`
}
