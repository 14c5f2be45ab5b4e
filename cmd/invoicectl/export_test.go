package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

const companyID = "0b7d3b9e-5d55-4a6a-8c3e-2f43a1f1c0de"

func TestExportInput(t *testing.T) {
	opts := exportOptions{
		companyID:   companyID,
		invoiceType: "Sales",
		status:      "reviewed",
		from:        "2024-05-01",
		to:          "2024-05-31",
		mark:        true,
	}

	in, err := opts.exportInput()

	require.NoError(t, err)
	assert.True(t, in.Mark)
	assert.Equal(t, companyID, in.Filters.CompanyID)
	assert.Equal(t, model.InvoiceTypeSales, in.Filters.Type)
	assert.Equal(t, model.InvoiceStatusReviewed, in.Filters.Status)
	require.NotNil(t, in.Filters.IssuedFrom)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *in.Filters.IssuedFrom)
	require.NotNil(t, in.Filters.IssuedTo)
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), *in.Filters.IssuedTo)
}

func TestExportInput_OnlyCompany(t *testing.T) {
	in, err := (&exportOptions{companyID: companyID}).exportInput()

	require.NoError(t, err)
	assert.Empty(t, in.Filters.Type)
	assert.Empty(t, in.Filters.Status)
	assert.Nil(t, in.Filters.IssuedFrom)
	assert.False(t, in.Mark)
}

func TestExportInput_Rejections(t *testing.T) {
	tests := []struct {
		name string
		opts exportOptions
	}{
		{"company not an id", exportOptions{companyID: "acme"}},
		{"unknown type", exportOptions{companyID: companyID, invoiceType: "credit"}},
		{"unknown status", exportOptions{companyID: companyID, status: "paid"}},
		{"bad date", exportOptions{companyID: companyID, from: "05/01/2024"}},
		{"inverted range", exportOptions{companyID: companyID, from: "2024-06-01", to: "2024-05-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.exportInput()
			assert.Error(t, err)
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"migrate", "export"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	export, _, _ := rootCmd.Find([]string{"export"})
	assert.NotNil(t, export.Flags().Lookup("mark"))
	assert.NotNil(t, export.Flags().ShorthandLookup("o"))
}
