package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
	"github.com/fekuna/omnipos-invoice-service/internal/auth"
	"github.com/fekuna/omnipos-invoice-service/internal/company"
	"github.com/fekuna/omnipos-invoice-service/internal/company/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/httpx"
	"github.com/fekuna/omnipos-invoice-service/internal/logger"
	"github.com/fekuna/omnipos-invoice-service/internal/middleware"
)

type CompanyHandler struct {
	uc     company.UseCase
	logger logger.ZapLogger
}

func NewCompanyHandler(uc company.UseCase, log logger.ZapLogger) *CompanyHandler {
	return &CompanyHandler{
		uc:     uc,
		logger: log,
	}
}

// RegisterRoutes mounts /companies and /users. Both need at least an admin;
// the usecase narrows company writes to super admins.
func (h *CompanyHandler) RegisterRoutes(api *mux.Router) {
	admin := middleware.RequireRole(auth.RoleAdmin)

	c := api.PathPrefix("/companies").Subrouter()
	c.Use(admin)
	c.HandleFunc("", h.ListCompanies).Methods(http.MethodGet)
	c.HandleFunc("", h.CreateCompany).Methods(http.MethodPost)
	c.HandleFunc("/{id}", h.GetCompany).Methods(http.MethodGet)
	c.HandleFunc("/{id}", h.UpdateCompany).Methods(http.MethodPut)
	c.HandleFunc("/{id}", h.DeleteCompany).Methods(http.MethodDelete)

	u := api.PathPrefix("/users").Subrouter()
	u.Use(admin)
	u.HandleFunc("", h.ListUsers).Methods(http.MethodGet)
	u.HandleFunc("", h.CreateUser).Methods(http.MethodPost)
	u.HandleFunc("/{id}", h.GetUser).Methods(http.MethodGet)
	u.HandleFunc("/{id}", h.UpdateUser).Methods(http.MethodPut)
	u.HandleFunc("/{id}", h.DeleteUser).Methods(http.MethodDelete)
}

type companyRequest struct {
	Name      string `json:"name"`
	VATNumber string `json:"vat_number"`
	Address   string `json:"address"`
}

type userRequest struct {
	CompanyID string `json:"company_id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	IsActive  *bool  `json:"is_active"`
}

func callerOf(r *http.Request) (auth.Identity, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return auth.Identity{}, status.Error(codes.Unauthenticated, "missing caller identity")
	}
	return id, nil
}

func (h *CompanyHandler) fail(w http.ResponseWriter, op string, err error) {
	if apperror.Code(err) == codes.Internal {
		h.logger.Error("company request failed", zap.String("op", op), zap.Error(err))
	}
	httpx.WriteError(w, err)
}

func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	companies, err := h.uc.ListCompanies(r.Context(), caller)
	if err != nil {
		h.fail(w, "list_companies", err)
		return
	}
	httpx.JSON(w, http.StatusOK, companies)
}

func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	companyID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	c, err := h.uc.GetCompany(r.Context(), caller, companyID)
	if err != nil {
		h.fail(w, "get_company", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	h.saveCompany(w, r, "", http.StatusCreated)
}

func (h *CompanyHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	h.saveCompany(w, r, companyID, http.StatusOK)
}

func (h *CompanyHandler) saveCompany(w http.ResponseWriter, r *http.Request, id string, code int) {
	caller, err := callerOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req companyRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	input := &dto.CompanyInput{ID: id, Name: req.Name, VATNumber: req.VATNumber, Address: req.Address}
	save := h.uc.UpdateCompany
	if id == "" {
		save = h.uc.CreateCompany
	}
	c, err := save(r.Context(), caller, input)
	if err != nil {
		h.fail(w, "save_company", err)
		return
	}
	httpx.JSON(w, code, c)
}

func (h *CompanyHandler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	companyID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.uc.DeleteCompany(r.Context(), caller, companyID); err != nil {
		h.fail(w, "delete_company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CompanyHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	companyID := r.URL.Query().Get("company_id")
	if err := httpx.RefID("company_id", companyID); err != nil {
		httpx.WriteError(w, err)
		return
	}

	users, err := h.uc.ListUsers(r.Context(), caller, &dto.UserFilters{CompanyID: companyID})
	if err != nil {
		h.fail(w, "list_users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *CompanyHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	userID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	u, err := h.uc.GetUser(r.Context(), caller, userID)
	if err != nil {
		h.fail(w, "get_user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *CompanyHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req userRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := httpx.RefID("company_id", strings.TrimSpace(req.CompanyID)); err != nil {
		httpx.WriteError(w, err)
		return
	}

	u, err := h.uc.CreateUser(r.Context(), caller, &dto.CreateUserInput{
		CompanyID: req.CompanyID,
		Email:     req.Email,
		FullName:  req.FullName,
		Role:      req.Role,
	})
	if err != nil {
		h.fail(w, "create_user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *CompanyHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	userID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req userRequest
	if err := httpx.Decode(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	// Omitting is_active leaves the account active.
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	u, err := h.uc.UpdateUser(r.Context(), caller, &dto.UpdateUserInput{
		ID:       userID,
		FullName: req.FullName,
		Role:     req.Role,
		IsActive: active,
	})
	if err != nil {
		h.fail(w, "update_user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *CompanyHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, err := callerOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	userID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.uc.DeleteUser(r.Context(), caller, userID); err != nil {
		h.fail(w, "delete_user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
