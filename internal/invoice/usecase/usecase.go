package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
	"github.com/fekuna/omnipos-invoice-service/internal/broker"
	"github.com/fekuna/omnipos-invoice-service/internal/category/tree"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice/amount"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/logger"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
	"github.com/fekuna/omnipos-invoice-service/internal/search"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultCurrency = "EUR"

	// maxPage keeps the OFFSET of a page well inside int range.
	maxPage = 100000
)

// CategoryTree resolves a company's categories for line validation and
// export paths.
type CategoryTree interface {
	GetTree(ctx context.Context, companyID string) ([]*tree.Node, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, ev broker.Event) error
}

type SearchIndex interface {
	// Index and Delete carry an external version; writes older than the
	// stored document are ignored.
	Index(ctx context.Context, index, id string, version int64, doc interface{}) error
	Delete(ctx context.Context, index, id string, version int64) error
	Search(ctx context.Context, index string, query map[string]interface{}) (*search.SearchResponse, error)
}

type invoiceUseCase struct {
	repo       invoice.Repository
	categories CategoryTree
	producer   EventPublisher
	es         SearchIndex
	indexName  string
	logger     logger.ZapLogger

	now     func() time.Time
	async   func(func())
	pending sync.WaitGroup
}

// NewInvoiceUseCase wires the invoice usecase. producer and es may be nil;
// events and indexing are then skipped and search falls back to SQL.
func NewInvoiceUseCase(
	repo invoice.Repository,
	categories CategoryTree,
	producer EventPublisher,
	es SearchIndex,
	indexName string,
	log logger.ZapLogger,
) invoice.UseCase {
	uc := &invoiceUseCase{
		repo:       repo,
		categories: categories,
		producer:   producer,
		es:         es,
		indexName:  indexName,
		logger:     log,
		now:        time.Now,
	}
	uc.async = func(f func()) {
		uc.pending.Add(1)
		go func() {
			defer uc.pending.Done()
			f()
		}()
	}
	return uc
}

// Wait blocks until every background index and publish call has returned.
func (uc *invoiceUseCase) Wait() {
	uc.pending.Wait()
}

func (uc *invoiceUseCase) CreateInvoice(ctx context.Context, input *dto.CreateInvoiceInput) (*model.Invoice, error) {
	if !input.Type.Valid() {
		return nil, fmt.Errorf("invoice type %q must be purchase or sales: %w", input.Type, apperror.ErrInvalidInput)
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	now := uc.bump(time.Time{})
	inv := &model.Invoice{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CompanyID:        input.CompanyID,
		Type:             input.Type,
		Number:           strings.TrimSpace(input.Number),
		CounterpartyName: strings.TrimSpace(input.CounterpartyName),
		CounterpartyVAT:  strings.TrimSpace(input.CounterpartyVAT),
		IssueDate:        issueDateOrToday(input.IssueDate, now),
		DueDate:          input.DueDate,
		Currency:         currency,
		Status:           model.InvoiceStatusDraft,
		DocumentURL:      strings.TrimSpace(input.DocumentURL),
		Notes:            input.Notes,
		CreatedBy:        input.CreatedBy,
		Lines:            make([]model.InvoiceLine, 0, len(input.Lines)),
	}

	for i := range input.Lines {
		line, err := newLine(&input.Lines[i], i+1)
		if err != nil {
			return nil, err
		}
		line.InvoiceID = inv.ID
		inv.Lines = append(inv.Lines, line)
	}
	if err := uc.validateCategories(ctx, inv.CompanyID, inv.Lines); err != nil {
		return nil, err
	}
	if err := applyTotals(inv); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	uc.afterWrite(inv, EventInvoiceCreated)
	return inv, nil
}

func (uc *invoiceUseCase) GetInvoice(ctx context.Context, companyID, id string) (*model.Invoice, error) {
	inv, err := uc.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("invoice %s: %w", id, apperror.ErrNotFound)
	}
	return inv, nil
}

func (uc *invoiceUseCase) ListInvoices(ctx context.Context, filters *dto.InvoiceFilters) (*dto.InvoiceList, error) {
	normalizePaging(filters)

	if filters.SearchQuery != "" && uc.es != nil {
		invoices, total, err := uc.searchIndex(ctx, filters)
		if err == nil {
			return &dto.InvoiceList{Invoices: invoices, Total: total, Page: filters.Page, PageSize: filters.PageSize}, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	invoices, total, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, err
	}
	return &dto.InvoiceList{Invoices: invoices, Total: total, Page: filters.Page, PageSize: filters.PageSize}, nil
}

func (uc *invoiceUseCase) UpdateInvoice(ctx context.Context, input *dto.UpdateInvoiceInput) (*model.Invoice, error) {
	inv, err := uc.editable(ctx, input.CompanyID, input.ID)
	if err != nil {
		return nil, err
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("invoice type %q must be purchase or sales: %w", input.Type, apperror.ErrInvalidInput)
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	prev := inv.UpdatedAt
	inv.Type = input.Type
	inv.Number = strings.TrimSpace(input.Number)
	inv.CounterpartyName = strings.TrimSpace(input.CounterpartyName)
	inv.CounterpartyVAT = strings.TrimSpace(input.CounterpartyVAT)
	inv.IssueDate = issueDateOrToday(input.IssueDate, inv.IssueDate)
	inv.DueDate = input.DueDate
	inv.Currency = currency
	inv.Notes = input.Notes
	inv.UpdatedAt = uc.bump(prev)

	if err := uc.repo.UpdateHeader(ctx, inv, prev); err != nil {
		return nil, err
	}

	uc.afterWrite(inv, EventInvoiceUpdated)
	return inv, nil
}

// Calculate previews line amounts and totals for a form being filled in.
// Every input is accepted; unusable numbers count as zero.
func (uc *invoiceUseCase) Calculate(input *dto.CalculateInput) *dto.CalculateResult {
	lines := make([]model.InvoiceLine, len(input.Lines))
	out := make([]dto.CalculatedLine, len(input.Lines))
	for i, in := range input.Lines {
		lines[i] = model.InvoiceLine{
			Quantity:  in.Quantity.Decimal,
			UnitPrice: in.UnitPrice.Decimal,
			VATRate:   in.VATRate.Decimal,
		}
		amount.Recompute(&lines[i])
		out[i] = dto.CalculatedLine{
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			VATRate:   in.VATRate,
			Amounts: amount.Amounts{
				Net:   lines[i].NetAmount,
				VAT:   lines[i].VATAmount,
				Gross: lines[i].GrossAmount,
			},
			StandardRate: amount.IsStandardRate(in.VATRate.Decimal),
		}
	}
	return &dto.CalculateResult{Lines: out, Totals: amount.Aggregate(lines)}
}

func (uc *invoiceUseCase) ChangeStatus(ctx context.Context, companyID, id string, next model.InvoiceStatus) (*model.Invoice, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", next, apperror.ErrInvalidInput)
	}
	inv, err := uc.GetInvoice(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	from := inv.Status
	if !from.CanTransition(next) {
		return nil, fmt.Errorf("invoice cannot move from %s to %s: %w", from, next, apperror.ErrConflict)
	}

	prev := inv.UpdatedAt
	inv.Status = next
	inv.UpdatedAt = uc.bump(prev)

	ok, err := uc.repo.UpdateStatus(ctx, inv, from, prev)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("invoice %s changed concurrently: %w", id, apperror.ErrConflict)
	}

	uc.afterStatusChange(inv, from)
	return inv, nil
}

// RegisterUpload opens a draft for a scanned document so it shows up in the
// review queue.
func (uc *invoiceUseCase) RegisterUpload(ctx context.Context, input *dto.RegisterUploadInput) (*model.Invoice, error) {
	if _, err := uuid.Parse(input.CompanyID); err != nil {
		return nil, fmt.Errorf("company id %q: %w", input.CompanyID, apperror.ErrInvalidInput)
	}
	if strings.TrimSpace(input.DocumentURL) == "" {
		return nil, fmt.Errorf("document url is required: %w", apperror.ErrInvalidInput)
	}
	invType := input.Type
	if invType == "" {
		invType = model.InvoiceTypePurchase
	}

	notes := ""
	if input.FileName != "" {
		notes = "Uploaded file: " + input.FileName
	}
	return uc.CreateInvoice(ctx, &dto.CreateInvoiceInput{
		CompanyID:   input.CompanyID,
		CreatedBy:   input.UploadedBy,
		Type:        invType,
		DocumentURL: input.DocumentURL,
		Notes:       notes,
	})
}

func (uc *invoiceUseCase) DeleteInvoice(ctx context.Context, companyID, id string) error {
	ok, err := uc.repo.Delete(ctx, companyID, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("invoice %s: %w", id, apperror.ErrNotFound)
	}
	uc.afterDelete(companyID, id)
	return nil
}

// editable loads an invoice that may still be changed.
func (uc *invoiceUseCase) editable(ctx context.Context, companyID, id string) (*model.Invoice, error) {
	inv, err := uc.GetInvoice(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == model.InvoiceStatusExported {
		return nil, fmt.Errorf("invoice %s is exported and read-only: %w", id, apperror.ErrConflict)
	}
	return inv, nil
}

// bump returns the updated_at of a write following one stamped prev: the
// current time at the precision Postgres keeps, moved past prev if the clock
// lags. It doubles as the search index version.
func (uc *invoiceUseCase) bump(prev time.Time) time.Time {
	t := uc.now().UTC().Truncate(time.Microsecond)
	if !t.After(prev) {
		t = prev.Add(time.Microsecond)
	}
	return t
}

// applyTotals aggregates the lines onto inv if the totals can be stored.
func applyTotals(inv *model.Invoice) error {
	totals := amount.Aggregate(inv.Lines)
	if !totals.Fit() {
		return fmt.Errorf("invoice totals must stay below %s: %w", amount.MaxMoney.String(), apperror.ErrInvalidInput)
	}
	totals.Apply(inv)
	return nil
}

func normalizePaging(f *dto.InvoiceFilters) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > maxPage {
		f.Page = maxPage
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
}

func normalizeCurrency(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return defaultCurrency, nil
	}
	if len(c) != 3 {
		return "", fmt.Errorf("currency %q must be a three-letter code: %w", c, apperror.ErrInvalidInput)
	}
	return c, nil
}

func issueDateOrToday(d, fallback time.Time) time.Time {
	if d.IsZero() {
		d = fallback
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
