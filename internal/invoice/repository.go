package invoice

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-invoice-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type Repository interface {
	// Create stores the header and its lines in one transaction.
	Create(ctx context.Context, invoice *model.Invoice) error
	// FindByID returns the invoice with its lines, or nil if absent.
	FindByID(ctx context.Context, companyID, id string) (*model.Invoice, error)
	// FindAll returns one page of headers and the total match count.
	FindAll(ctx context.Context, filters *dto.InvoiceFilters) ([]model.Invoice, int, error)
	// FindWithLines returns every matching invoice with its lines, ignoring paging.
	FindWithLines(ctx context.Context, filters *dto.InvoiceFilters) ([]model.Invoice, error)
	// UpdateHeader saves the header fields. It fails with
	// apperror.ErrConflict unless the stored invoice is not exported and
	// still carries prevUpdatedAt.
	UpdateHeader(ctx context.Context, invoice *model.Invoice, prevUpdatedAt time.Time) error
	// SaveLines replaces the lines and totals of invoice in one transaction,
	// under the same condition as UpdateHeader.
	SaveLines(ctx context.Context, invoice *model.Invoice, prevUpdatedAt time.Time) error
	// UpdateStatus stores invoice.Status and invoice.UpdatedAt. It reports
	// false when the stored invoice is not in status from or no longer
	// carries prevUpdatedAt.
	UpdateStatus(ctx context.Context, invoice *model.Invoice, from model.InvoiceStatus, prevUpdatedAt time.Time) (bool, error)
	// MarkExported moves to exported the reviewed invoices in seen whose
	// updated_at still matches, stamping them with at. It returns the ids it
	// changed.
	MarkExported(ctx context.Context, companyID string, seen map[string]time.Time, at time.Time) ([]string, error)
	Delete(ctx context.Context, companyID, id string) (bool, error)
}
