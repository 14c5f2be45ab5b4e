package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
	"github.com/fekuna/omnipos-invoice-service/internal/auth"
	"github.com/fekuna/omnipos-invoice-service/internal/httpx"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/logger"
	"github.com/fekuna/omnipos-invoice-service/internal/middleware"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

const dateLayout = "2006-01-02"

type InvoiceHandler struct {
	uc     invoice.UseCase
	logger logger.ZapLogger
}

func NewInvoiceHandler(uc invoice.UseCase, log logger.ZapLogger) *InvoiceHandler {
	return &InvoiceHandler{
		uc:     uc,
		logger: log,
	}
}

// RegisterRoutes mounts the invoice routes on api, which must already
// resolve the caller identity. Reviewing and exporting need an accountant;
// deleting needs an admin.
func (h *InvoiceHandler) RegisterRoutes(api *mux.Router) {
	r := api.PathPrefix("/invoices").Subrouter()
	accountant := middleware.RequireRole(auth.RoleAccountant)
	admin := middleware.RequireRole(auth.RoleAdmin)

	r.HandleFunc("", h.ListInvoices).Methods(http.MethodGet)
	r.HandleFunc("", h.CreateInvoice).Methods(http.MethodPost)
	r.HandleFunc("/calculate", h.Calculate).Methods(http.MethodPost)
	r.Handle("/export", accountant(http.HandlerFunc(h.Export))).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.GetInvoice).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.UpdateInvoice).Methods(http.MethodPut)
	r.Handle("/{id}", admin(http.HandlerFunc(h.DeleteInvoice))).Methods(http.MethodDelete)
	r.Handle("/{id}/status", accountant(http.HandlerFunc(h.ChangeStatus))).Methods(http.MethodPost)
	r.HandleFunc("/{id}/lines", h.AddLine).Methods(http.MethodPost)
	r.HandleFunc("/{id}/lines/{lineId}", h.UpdateLine).Methods(http.MethodPut)
	r.HandleFunc("/{id}/lines/{lineId}", h.DeleteLine).Methods(http.MethodDelete)
}

type lineRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	CategoryID  *string         `json:"category_id"`
}

func (l *lineRequest) input() (*dto.LineInput, error) {
	if l.CategoryID != nil {
		if err := httpx.RefID("category_id", strings.TrimSpace(*l.CategoryID)); err != nil {
			return nil, err
		}
	}
	return &dto.LineInput{
		Description: l.Description,
		Quantity:    l.Quantity,
		Unit:        l.Unit,
		UnitPrice:   l.UnitPrice,
		VATRate:     l.VATRate,
		CategoryID:  l.CategoryID,
	}, nil
}

type invoiceRequest struct {
	Type             model.InvoiceType `json:"type"`
	Number           string            `json:"number"`
	CounterpartyName string            `json:"counterparty_name"`
	CounterpartyVAT  string            `json:"counterparty_vat"`
	IssueDate        string            `json:"issue_date"`
	DueDate          string            `json:"due_date"`
	Currency         string            `json:"currency"`
	DocumentURL      string            `json:"document_url"`
	Notes            string            `json:"notes"`
	Lines            []lineRequest     `json:"lines"`
}

type statusRequest struct {
	Status model.InvoiceStatus `json:"status"`
}

func (h *InvoiceHandler) fail(w http.ResponseWriter, op string, err error) {
	if apperror.Code(err) == codes.Internal {
		h.logger.Error("invoice request failed", zap.String("op", op), zap.Error(err))
	}
	httpx.WriteError(w, err)
}

func identityOf(r *http.Request) (auth.Identity, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok || id.CompanyID == "" {
		return auth.Identity{}, status.Error(codes.Unauthenticated, "missing company context")
	}
	return id, nil
}

func lineIDs(r *http.Request) (string, string, error) {
	invoiceID, err := httpx.PathID(r, "id")
	if err != nil {
		return "", "", err
	}
	lineID, err := httpx.PathID(r, "lineId")
	if err != nil {
		return "", "", err
	}
	return invoiceID, lineID, nil
}

func (h *InvoiceHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := identityOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req invoiceRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	issue, due, err := parseDates(req.IssueDate, req.DueDate)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	input := &dto.CreateInvoiceInput{
		CompanyID:        id.CompanyID,
		CreatedBy:        id.UserID,
		Type:             req.Type,
		Number:           req.Number,
		CounterpartyName: req.CounterpartyName,
		CounterpartyVAT:  req.CounterpartyVAT,
		IssueDate:        issue,
		DueDate:          due,
		Currency:         req.Currency,
		DocumentURL:      req.DocumentURL,
		Notes:            req.Notes,
		Lines:            make([]dto.LineInput, len(req.Lines)),
	}
	for i := range req.Lines {
		line, err := req.Lines[i].input()
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		input.Lines[i] = *line
	}

	inv, err := h.uc.CreateInvoice(r.Context(), input)
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := identityOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	invoiceID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	inv, err := h.uc.GetInvoice(r.Context(), id.CompanyID, invoiceID)
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	id, err := identityOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	filters, err := parseFilters(r, id.CompanyID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	q := r.URL.Query()
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	list, err := h.uc.ListInvoices(r.Context(), filters)
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *InvoiceHandler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := identityOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	invoiceID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req invoiceRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	issue, due, err := parseDates(req.IssueDate, req.DueDate)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	inv, err := h.uc.UpdateInvoice(r.Context(), &dto.UpdateInvoiceInput{
		ID:               invoiceID,
		CompanyID:        id.CompanyID,
		Type:             req.Type,
		Number:           req.Number,
		CounterpartyName: req.CounterpartyName,
		CounterpartyVAT:  req.CounterpartyVAT,
		IssueDate:        issue,
		DueDate:          due,
		Currency:         req.Currency,
		Notes:            req.Notes,
	})
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := identityOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	invoiceID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.uc.DeleteInvoice(r.Context(), id.CompanyID, invoiceID); err != nil {
		h.fail(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InvoiceHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, err := identityOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	invoiceID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req lineRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	line, err := req.input()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	inv, err := h.uc.AddLine(r.Context(), id.CompanyID, invoiceID, line)
	if err != nil {
		h.fail(w, "add_line", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, err := identityOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	invoiceID, lineID, err := lineIDs(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req lineRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	line, err := req.input()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	inv, err := h.uc.UpdateLine(r.Context(), id.CompanyID, invoiceID, lineID, line)
	if err != nil {
		h.fail(w, "update_line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	id, err := identityOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	invoiceID, lineID, err := lineIDs(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	inv, err := h.uc.DeleteLine(r.Context(), id.CompanyID, invoiceID, lineID)
	if err != nil {
		h.fail(w, "delete_line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Calculate never rejects numbers; it exists to preview half-filled forms.
func (h *InvoiceHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req dto.CalculateInput
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.uc.Calculate(&req))
}

func (h *InvoiceHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := identityOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	invoiceID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req statusRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	inv, err := h.uc.ChangeStatus(r.Context(), id.CompanyID, invoiceID, req.Status)
	if err != nil {
		h.fail(w, "change_status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Export streams the CSV. The body is buffered so a failure halfway still
// produces a proper error response.
func (h *InvoiceHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := identityOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	filters, err := parseFilters(r, id.CompanyID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	mark, _ := strconv.ParseBool(r.URL.Query().Get("mark"))

	var buf bytes.Buffer
	res, err := h.uc.Export(r.Context(), &dto.ExportInput{Filters: *filters, Mark: mark}, &buf)
	if err != nil {
		h.fail(w, "export", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoices-%s.csv"`, time.Now().UTC().Format(dateLayout)))
	w.Header().Set("X-Export-Rows", strconv.Itoa(res.Rows))
	w.Header().Set("X-Export-Marked", strconv.Itoa(len(res.Marked)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func parseFilters(r *http.Request, companyID string) (*dto.InvoiceFilters, error) {
	q := r.URL.Query()
	f := &dto.InvoiceFilters{
		CompanyID:   companyID,
		Type:        model.InvoiceType(q.Get("type")),
		Status:      model.InvoiceStatus(q.Get("status")),
		SearchQuery: strings.TrimSpace(q.Get("q")),
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown invoice type %q", f.Type)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown invoice status %q", f.Status)
	}
	var err error
	if f.IssuedFrom, err = parseDate("from", q.Get("from")); err != nil {
		return nil, err
	}
	if f.IssuedTo, err = parseDate("to", q.Get("to")); err != nil {
		return nil, err
	}
	return f, nil
}

func parseDates(issue, due string) (time.Time, *time.Time, error) {
	issueDate, err := parseDate("issue_date", issue)
	if err != nil {
		return time.Time{}, nil, err
	}
	dueDate, err := parseDate("due_date", due)
	if err != nil {
		return time.Time{}, nil, err
	}
	if issueDate == nil {
		return time.Time{}, dueDate, nil
	}
	return *issueDate, dueDate, nil
}

func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a date like 2024-01-31", field)
	}
	return &t, nil
}
