package invoice

import (
	"context"
	"io"

	"github.com/fekuna/omnipos-invoice-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type UseCase interface {
	CreateInvoice(ctx context.Context, input *dto.CreateInvoiceInput) (*model.Invoice, error)
	GetInvoice(ctx context.Context, companyID, id string) (*model.Invoice, error)
	ListInvoices(ctx context.Context, filters *dto.InvoiceFilters) (*dto.InvoiceList, error)
	UpdateInvoice(ctx context.Context, input *dto.UpdateInvoiceInput) (*model.Invoice, error)
	AddLine(ctx context.Context, companyID, invoiceID string, input *dto.LineInput) (*model.Invoice, error)
	UpdateLine(ctx context.Context, companyID, invoiceID, lineID string, input *dto.LineInput) (*model.Invoice, error)
	DeleteLine(ctx context.Context, companyID, invoiceID, lineID string) (*model.Invoice, error)
	Calculate(input *dto.CalculateInput) *dto.CalculateResult
	ChangeStatus(ctx context.Context, companyID, id string, next model.InvoiceStatus) (*model.Invoice, error)
	RegisterUpload(ctx context.Context, input *dto.RegisterUploadInput) (*model.Invoice, error)
	DeleteInvoice(ctx context.Context, companyID, id string) error
	Export(ctx context.Context, input *dto.ExportInput, w io.Writer) (*dto.ExportResult, error)

	// Wait blocks until background side effects of earlier calls finish.
	Wait()
}
