package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceType string

const (
	InvoiceTypePurchase InvoiceType = "purchase"
	InvoiceTypeSales    InvoiceType = "sales"
)

func (t InvoiceType) Valid() bool {
	return t == InvoiceTypePurchase || t == InvoiceTypeSales
}

// InvoiceStatus is the review state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "draft"
	InvoiceStatusReviewed InvoiceStatus = "reviewed"
	InvoiceStatusExported InvoiceStatus = "exported"
	InvoiceStatusRejected InvoiceStatus = "rejected"
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:    {InvoiceStatusReviewed, InvoiceStatusRejected},
	InvoiceStatusReviewed: {InvoiceStatusDraft, InvoiceStatusExported, InvoiceStatusRejected},
	InvoiceStatusRejected: {InvoiceStatusDraft},
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusReviewed, InvoiceStatusExported, InvoiceStatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether an invoice may move from s to next.
func (s InvoiceStatus) CanTransition(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Invoice struct {
	BaseModel
	CompanyID        string          `db:"company_id" json:"company_id"`
	Type             InvoiceType     `db:"type" json:"type"`
	Number           string          `db:"number" json:"number"`
	CounterpartyName string          `db:"counterparty_name" json:"counterparty_name"`
	CounterpartyVAT  string          `db:"counterparty_vat" json:"counterparty_vat"`
	IssueDate        time.Time       `db:"issue_date" json:"issue_date"`
	DueDate          *time.Time      `db:"due_date" json:"due_date"`
	Currency         string          `db:"currency" json:"currency"`
	Status           InvoiceStatus   `db:"status" json:"status"`
	DocumentURL      string          `db:"document_url" json:"document_url"`
	Notes            string          `db:"notes" json:"notes"`
	NetTotal         decimal.Decimal `db:"net_total" json:"net_total"`
	VATTotal         decimal.Decimal `db:"vat_total" json:"vat_total"`
	GrossTotal       decimal.Decimal `db:"gross_total" json:"gross_total"`
	CreatedBy        string          `db:"created_by" json:"created_by"`
	Lines            []InvoiceLine   `db:"-" json:"lines"`
}

type InvoiceLine struct {
	ID          string          `db:"id" json:"id"`
	InvoiceID   string          `db:"invoice_id" json:"invoice_id"`
	Position    int             `db:"position" json:"position"`
	Description string          `db:"description" json:"description"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	Unit        string          `db:"unit" json:"unit"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	VATRate     decimal.Decimal `db:"vat_rate" json:"vat_rate"`
	NetAmount   decimal.Decimal `db:"net_amount" json:"net_amount"`
	VATAmount   decimal.Decimal `db:"vat_amount" json:"vat_amount"`
	GrossAmount decimal.Decimal `db:"gross_amount" json:"gross_amount"`
	CategoryID  *string         `db:"category_id" json:"category_id"`
}
