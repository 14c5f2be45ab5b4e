package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantBody string
	}{
		{fmt.Errorf("invoice: %w", apperror.ErrNotFound), http.StatusNotFound, `{"error":"invoice: not found"}`},
		{status.Error(codes.Unauthenticated, "missing identity"), http.StatusUnauthorized, `{"error":"missing identity"}`},
		{apperror.ErrConflict, http.StatusConflict, `{"error":"conflict"}`},
		{errors.New("db down"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteError(rec, tt.err)
		assert.Equal(t, tt.wantCode, rec.Code)
		assert.JSONEq(t, tt.wantBody, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"fuel"}`))

	require.NoError(t, Decode(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, "fuel", dst.Name)
}

func TestDecode_Malformed(t *testing.T) {
	var dst struct{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))

	err := Decode(httptest.NewRecorder(), req, &dst)

	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDecode_BodyTooLarge(t *testing.T) {
	var dst struct {
		Notes string `json:"notes"`
	}
	body := `{"notes":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	err := Decode(httptest.NewRecorder(), req, &dst)

	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, err.Error(), "too large")
	assert.Empty(t, dst.Notes)
}

func TestPathID(t *testing.T) {
	const id = "7f8e2a52-3d1c-4c55-9a0e-6b1f7c9d2e41"
	tests := []struct {
		value   string
		wantErr bool
	}{
		{id, false},
		{"abc", true},
		{"", true},
		{"1; DROP TABLE invoices", true},
	}
	for _, tt := range tests {
		req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": tt.value})

		got, err := PathID(req, "id")

		if tt.wantErr {
			assert.ErrorIs(t, err, apperror.ErrNotFound, "value %q", tt.value)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestRefID(t *testing.T) {
	assert.NoError(t, RefID("parent_id", ""))
	assert.NoError(t, RefID("parent_id", "7f8e2a52-3d1c-4c55-9a0e-6b1f7c9d2e41"))
	assert.ErrorIs(t, RefID("parent_id", "office"), apperror.ErrInvalidInput)
}
