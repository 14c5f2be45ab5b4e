package usecase

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fekuna/omnipos-invoice-service/internal/category/tree"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice/amount"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

const dateLayout = "2006-01-02"

// CategoryPathSeparator joins category names from the root down.
const CategoryPathSeparator = " / "

var exportHeader = []string{
	"invoice_number", "type", "issue_date", "due_date",
	"counterparty_name", "counterparty_vat", "status",
	"description", "quantity", "unit", "unit_price", "vat_rate",
	"net_amount", "vat_amount", "gross_amount", "category",
}

// Export writes one CSV row per line of every matching invoice. Invoices
// without lines produce no rows and are not marked.
func (uc *invoiceUseCase) Export(ctx context.Context, input *dto.ExportInput, w io.Writer) (*dto.ExportResult, error) {
	filters := input.Filters
	invoices, err := uc.repo.FindWithLines(ctx, &filters)
	if err != nil {
		return nil, err
	}
	forest, err := uc.categories.GetTree(ctx, filters.CompanyID)
	if err != nil {
		return nil, err
	}
	paths := map[string]string{}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return nil, err
	}

	result := &dto.ExportResult{Marked: []string{}}
	exported := map[string]time.Time{}
	for i := range invoices {
		inv := &invoices[i]
		if len(inv.Lines) == 0 {
			continue
		}
		for _, l := range inv.Lines {
			if err := cw.Write(exportRow(inv, &l, categoryPath(forest, paths, l.CategoryID))); err != nil {
				return nil, err
			}
			result.Rows++
		}
		result.Invoices++
		if inv.Status == model.InvoiceStatusReviewed {
			exported[inv.ID] = inv.UpdatedAt
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}

	if input.Mark && len(exported) > 0 {
		var latest time.Time
		for _, v := range exported {
			if v.After(latest) {
				latest = v
			}
		}
		at := uc.bump(latest)
		marked, err := uc.repo.MarkExported(ctx, filters.CompanyID, exported, at)
		if err != nil {
			return nil, err
		}
		result.Marked = marked
		uc.afterMark(invoices, marked, at)
	}

	uc.logger.Info("Exported invoices",
		zap.String("company_id", filters.CompanyID),
		zap.Int("invoices", result.Invoices),
		zap.Int("rows", result.Rows),
		zap.Int("marked", len(result.Marked)),
	)
	return result, nil
}

func (uc *invoiceUseCase) afterMark(invoices []model.Invoice, marked []string, at time.Time) {
	set := make(map[string]struct{}, len(marked))
	for _, id := range marked {
		set[id] = struct{}{}
	}
	for i := range invoices {
		if _, ok := set[invoices[i].ID]; !ok {
			continue
		}
		invoices[i].Status = model.InvoiceStatusExported
		invoices[i].UpdatedAt = at
		uc.afterStatusChange(&invoices[i], model.InvoiceStatusReviewed)
	}
}

func exportRow(inv *model.Invoice, l *model.InvoiceLine, category string) []string {
	due := ""
	if inv.DueDate != nil {
		due = inv.DueDate.Format(dateLayout)
	}
	return []string{
		inv.Number,
		string(inv.Type),
		inv.IssueDate.Format(dateLayout),
		due,
		inv.CounterpartyName,
		inv.CounterpartyVAT,
		string(inv.Status),
		l.Description,
		l.Quantity.String(),
		l.Unit,
		l.UnitPrice.String(),
		l.VATRate.String(),
		l.NetAmount.StringFixed(amount.Places),
		l.VATAmount.StringFixed(amount.Places),
		l.GrossAmount.StringFixed(amount.Places),
		category,
	}
}

// categoryPath renders the category as "Root / Child", memoised per export.
func categoryPath(forest []*tree.Node, memo map[string]string, id *string) string {
	if id == nil {
		return ""
	}
	if p, ok := memo[*id]; ok {
		return p
	}
	p := strings.Join(tree.Path(forest, *id), CategoryPathSeparator)
	memo[*id] = p
	return p
}
