package amount

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// maxInputLen caps the text a form field may hold.
	maxInputLen = 64
	// MaxExponent bounds the power of ten a parsed number may carry, in
	// either direction. Rounding cost grows with the exponent.
	MaxExponent = 20
	// MaxDigits bounds the significant digits of a parsed number.
	MaxDigits = 40
)

// WithinLimits reports whether d is small enough in exponent and digit
// count to be rounded and multiplied cheaply. It does no arithmetic on d.
func WithinLimits(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp > MaxExponent || exp < -MaxExponent {
		return false
	}
	return d.NumDigits() <= MaxDigits
}

// Parse reads a number typed into a form field. Blank, malformed, NaN and
// out-of-range input all read as zero.
//
// A comma is taken as the decimal separator only when the value has no dot
// and the comma is followed by one or two digits, so "12,5" is 12.5. A
// comma before three digits looks like a thousands separator and "1,234"
// reads as zero rather than 1.234.
func Parse(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxInputLen {
		return decimal.Zero
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		if !decimalComma(s, i) {
			return decimal.Zero
		}
		s = s[:i] + "." + s[i+1:]
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !WithinLimits(d) {
		return decimal.Zero
	}
	return d
}

// decimalComma reports whether the comma at i separates cents.
func decimalComma(s string, i int) bool {
	if strings.ContainsAny(s, ".eE") {
		return false
	}
	frac := s[i+1:]
	if len(frac) < 1 || len(frac) > 2 {
		return false
	}
	for _, c := range frac {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Lenient is a JSON number field that never fails to decode. Numbers and
// numeric strings decode to their value; everything else decodes to zero.
type Lenient struct {
	decimal.Decimal
}

func NewLenient(d decimal.Decimal) Lenient {
	return Lenient{Decimal: d}
}

func (l *Lenient) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		l.Decimal = decimal.Zero
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			l.Decimal = decimal.Zero
			return nil
		}
		l.Decimal = Parse(s)
	default:
		l.Decimal = Parse(string(data))
	}
	return nil
}

func (l Lenient) MarshalJSON() ([]byte, error) {
	return l.Decimal.MarshalJSON()
}
