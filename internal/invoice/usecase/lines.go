package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
	"github.com/fekuna/omnipos-invoice-service/internal/category/tree"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice/amount"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

// newLine validates input and returns a line with its amounts derived.
// Quantity and unit price are rounded to the places the columns keep before
// the amounts are taken from them.
func newLine(input *dto.LineInput, position int) (model.InvoiceLine, error) {
	for _, v := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"quantity", input.Quantity},
		{"unit price", input.UnitPrice},
		{"VAT rate", input.VATRate},
	} {
		if !amount.WithinLimits(v.value) {
			return model.InvoiceLine{}, fmt.Errorf("line %d: %s is out of range: %w", position, v.name, apperror.ErrInvalidInput)
		}
	}

	quantity := input.Quantity.Round(amount.InputPlaces)
	unitPrice := input.UnitPrice.Round(amount.InputPlaces)
	if quantity.IsNegative() {
		return model.InvoiceLine{}, fmt.Errorf("line %d: quantity must not be negative: %w", position, apperror.ErrInvalidInput)
	}
	if !amount.Fits(quantity, amount.MaxInput) || !amount.Fits(unitPrice, amount.MaxInput) {
		return model.InvoiceLine{}, fmt.Errorf("line %d: quantity and unit price must stay below %s: %w",
			position, amount.MaxInput.String(), apperror.ErrInvalidInput)
	}
	if !amount.IsStandardRate(input.VATRate) {
		return model.InvoiceLine{}, fmt.Errorf("line %d: VAT rate %s%% is not a standard rate: %w",
			position, input.VATRate.String(), apperror.ErrInvalidInput)
	}

	line := model.InvoiceLine{
		ID:          uuid.New().String(),
		Position:    position,
		Description: strings.TrimSpace(input.Description),
		Quantity:    quantity,
		Unit:        strings.TrimSpace(input.Unit),
		UnitPrice:   unitPrice,
		VATRate:     input.VATRate,
		CategoryID:  input.CategoryID,
	}
	if line.CategoryID != nil && strings.TrimSpace(*line.CategoryID) == "" {
		line.CategoryID = nil
	}
	amount.Recompute(&line)
	if !amount.Fits(line.GrossAmount, amount.MaxMoney) {
		return model.InvoiceLine{}, fmt.Errorf("line %d: amount must stay below %s: %w",
			position, amount.MaxMoney.String(), apperror.ErrInvalidInput)
	}
	return line, nil
}

// validateCategories checks every referenced category belongs to the company.
func (uc *invoiceUseCase) validateCategories(ctx context.Context, companyID string, lines []model.InvoiceLine) error {
	var forest []*tree.Node
	loaded := false
	for _, l := range lines {
		if l.CategoryID == nil {
			continue
		}
		if !loaded {
			var err error
			forest, err = uc.categories.GetTree(ctx, companyID)
			if err != nil {
				return err
			}
			loaded = true
		}
		if tree.Find(forest, *l.CategoryID) == nil {
			return fmt.Errorf("line %d: category %s does not exist: %w", l.Position, *l.CategoryID, apperror.ErrInvalidInput)
		}
	}
	return nil
}

func (uc *invoiceUseCase) AddLine(ctx context.Context, companyID, invoiceID string, input *dto.LineInput) (*model.Invoice, error) {
	inv, err := uc.editable(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}

	line, err := newLine(input, len(inv.Lines)+1)
	if err != nil {
		return nil, err
	}
	line.InvoiceID = inv.ID
	inv.Lines = append(inv.Lines, line)

	return uc.saveLines(ctx, inv, []model.InvoiceLine{line})
}

func (uc *invoiceUseCase) UpdateLine(ctx context.Context, companyID, invoiceID, lineID string, input *dto.LineInput) (*model.Invoice, error) {
	inv, err := uc.editable(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}

	idx := lineIndex(inv.Lines, lineID)
	if idx < 0 {
		return nil, fmt.Errorf("line %s: %w", lineID, apperror.ErrNotFound)
	}

	line, err := newLine(input, inv.Lines[idx].Position)
	if err != nil {
		return nil, err
	}
	line.ID = lineID
	line.InvoiceID = inv.ID
	inv.Lines[idx] = line

	return uc.saveLines(ctx, inv, []model.InvoiceLine{line})
}

func (uc *invoiceUseCase) DeleteLine(ctx context.Context, companyID, invoiceID, lineID string) (*model.Invoice, error) {
	inv, err := uc.editable(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}

	idx := lineIndex(inv.Lines, lineID)
	if idx < 0 {
		return nil, fmt.Errorf("line %s: %w", lineID, apperror.ErrNotFound)
	}
	inv.Lines = append(inv.Lines[:idx], inv.Lines[idx+1:]...)

	return uc.saveLines(ctx, inv, nil)
}

// saveLines renumbers the lines, re-aggregates the totals and persists both,
// provided nobody saved the invoice since it was read. changed are validated
// against the category tree first.
func (uc *invoiceUseCase) saveLines(ctx context.Context, inv *model.Invoice, changed []model.InvoiceLine) (*model.Invoice, error) {
	if err := uc.validateCategories(ctx, inv.CompanyID, changed); err != nil {
		return nil, err
	}
	for i := range inv.Lines {
		inv.Lines[i].Position = i + 1
	}
	if err := applyTotals(inv); err != nil {
		return nil, err
	}
	prev := inv.UpdatedAt
	inv.UpdatedAt = uc.bump(prev)

	if err := uc.repo.SaveLines(ctx, inv, prev); err != nil {
		return nil, err
	}

	uc.afterWrite(inv, EventInvoiceUpdated)
	return inv, nil
}

func lineIndex(lines []model.InvoiceLine, id string) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}
