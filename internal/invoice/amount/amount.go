// Package amount derives the money fields of invoice lines and documents.
//
// Every step rounds to cents before the next one uses the value: net is
// rounded before VAT is taken from it, and document totals add up the
// already-rounded line amounts.
package amount

import (
	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

// Places is the number of decimal places kept for money.
const Places = 2

// InputPlaces is the number of decimal places kept for stored quantities and
// unit prices.
const InputPlaces = 4

var (
	// MaxInput bounds stored quantities and unit prices, NUMERIC(14,4).
	MaxInput = decimal.New(1, 10)
	// MaxMoney bounds stored line amounts and totals, NUMERIC(14,2).
	MaxMoney = decimal.New(1, 12)
)

// Fits reports whether |d| is below limit.
func Fits(d, limit decimal.Decimal) bool {
	return d.Abs().LessThan(limit)
}

var hundred = decimal.NewFromInt(100)

// StandardRates are the VAT percentages a line may be saved with.
var StandardRates = []decimal.Decimal{
	decimal.NewFromInt(0),
	decimal.NewFromInt(5),
	decimal.NewFromInt(9),
	decimal.NewFromInt(21),
}

// IsStandardRate reports whether rate is one of StandardRates.
func IsStandardRate(rate decimal.Decimal) bool {
	for _, r := range StandardRates {
		if r.Equal(rate) {
			return true
		}
	}
	return false
}

// Round rounds half away from zero to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Amounts are the derived values of one line.
type Amounts struct {
	Net   decimal.Decimal `json:"net_amount"`
	VAT   decimal.Decimal `json:"vat_amount"`
	Gross decimal.Decimal `json:"gross_amount"`
}

// Compute derives net, VAT and gross for quantity units at unitPrice taxed at
// vatRate percent.
func Compute(quantity, unitPrice, vatRate decimal.Decimal) Amounts {
	net := Round(quantity.Mul(unitPrice))
	vat := Round(net.Mul(vatRate).Div(hundred))
	return Amounts{
		Net:   net,
		VAT:   vat,
		Gross: Round(net.Add(vat)),
	}
}

// Recompute overwrites the derived amounts of line from its inputs.
func Recompute(line *model.InvoiceLine) {
	a := Compute(line.Quantity, line.UnitPrice, line.VATRate)
	line.NetAmount = a.Net
	line.VATAmount = a.VAT
	line.GrossAmount = a.Gross
}

// RecomputeAll recomputes every line in place.
func RecomputeAll(lines []model.InvoiceLine) {
	for i := range lines {
		Recompute(&lines[i])
	}
}

// Totals are the document-level sums of line amounts.
type Totals struct {
	Net   decimal.Decimal `json:"net_total"`
	VAT   decimal.Decimal `json:"vat_total"`
	Gross decimal.Decimal `json:"gross_total"`
}

// Aggregate sums the stored line amounts. It does not recompute the lines.
func Aggregate(lines []model.InvoiceLine) Totals {
	net, vat, gross := decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range lines {
		net = net.Add(l.NetAmount)
		vat = vat.Add(l.VATAmount)
		gross = gross.Add(l.GrossAmount)
	}
	return Totals{
		Net:   Round(net),
		VAT:   Round(vat),
		Gross: Round(gross),
	}
}

// Fit reports whether every total can be stored.
func (t Totals) Fit() bool {
	return Fits(t.Net, MaxMoney) && Fits(t.VAT, MaxMoney) && Fits(t.Gross, MaxMoney)
}

// Apply copies totals onto the invoice header.
func (t Totals) Apply(inv *model.Invoice) {
	inv.NetTotal = t.Net
	inv.VATTotal = t.VAT
	inv.GrossTotal = t.Gross
}
