package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvoiceStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to InvoiceStatus
		want     bool
	}{
		{InvoiceStatusDraft, InvoiceStatusReviewed, true},
		{InvoiceStatusDraft, InvoiceStatusRejected, true},
		{InvoiceStatusDraft, InvoiceStatusExported, false},
		{InvoiceStatusReviewed, InvoiceStatusDraft, true},
		{InvoiceStatusReviewed, InvoiceStatusExported, true},
		{InvoiceStatusRejected, InvoiceStatusDraft, true},
		{InvoiceStatusRejected, InvoiceStatusReviewed, false},
		{InvoiceStatusExported, InvoiceStatusDraft, false},
		{InvoiceStatusExported, InvoiceStatusReviewed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestInvoiceType_Valid(t *testing.T) {
	assert.True(t, InvoiceTypePurchase.Valid())
	assert.True(t, InvoiceTypeSales.Valid())
	assert.False(t, InvoiceType("credit").Valid())
	assert.False(t, InvoiceType("").Valid())
}

func TestInvoiceStatus_Valid(t *testing.T) {
	assert.True(t, InvoiceStatusExported.Valid())
	assert.False(t, InvoiceStatus("approved").Valid())
}

func TestCategory_IsRoot(t *testing.T) {
	empty := ""
	parent := "p1"
	assert.True(t, Category{}.IsRoot())
	assert.True(t, Category{ParentID: &empty}.IsRoot())
	assert.False(t, Category{ParentID: &parent}.IsRoot())
}
