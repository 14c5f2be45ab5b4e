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
	"github.com/fekuna/omnipos-invoice-service/internal/category"
	"github.com/fekuna/omnipos-invoice-service/internal/category/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/httpx"
	"github.com/fekuna/omnipos-invoice-service/internal/logger"
	"github.com/fekuna/omnipos-invoice-service/internal/middleware"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type CategoryHandler struct {
	uc     category.UseCase
	logger logger.ZapLogger
}

func NewCategoryHandler(uc category.UseCase, log logger.ZapLogger) *CategoryHandler {
	return &CategoryHandler{
		uc:     uc,
		logger: log,
	}
}

// RegisterRoutes mounts the category routes on api, which must already
// resolve the caller identity.
func (h *CategoryHandler) RegisterRoutes(api *mux.Router) {
	r := api.PathPrefix("/categories").Subrouter()
	admin := middleware.RequireRole(auth.RoleAdmin)

	r.HandleFunc("", h.ListCategories).Methods(http.MethodGet)
	r.HandleFunc("/tree", h.GetTree).Methods(http.MethodGet)
	r.HandleFunc("/options", h.ParentOptions).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.GetCategory).Methods(http.MethodGet)
	r.Handle("", admin(http.HandlerFunc(h.CreateCategory))).Methods(http.MethodPost)
	r.Handle("/{id}", admin(http.HandlerFunc(h.UpdateCategory))).Methods(http.MethodPut)
	r.Handle("/{id}", admin(http.HandlerFunc(h.DeleteCategory))).Methods(http.MethodDelete)
}

type categoryRequest struct {
	ParentID    *string `json:"parent_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SortOrder   int     `json:"sort_order"`
}

type listResponse struct {
	Categories []model.Category `json:"categories"`
	Total      int              `json:"total"`
}

func companyOf(r *http.Request) (string, error) {
	companyID := auth.GetCompanyID(r.Context())
	if companyID == "" {
		return "", status.Error(codes.Unauthenticated, "missing company context")
	}
	return companyID, nil
}

func (h *CategoryHandler) fail(w http.ResponseWriter, op string, err error) {
	if apperror.Code(err) == codes.Internal {
		h.logger.Error("category request failed", zap.String("op", op), zap.Error(err))
	}
	httpx.WriteError(w, err)
}

func (h *CategoryHandler) decode(w http.ResponseWriter, r *http.Request, req *categoryRequest) error {
	if err := httpx.Decode(w, r, req); err != nil {
		return err
	}
	if req.ParentID != nil {
		return httpx.RefID("parent_id", strings.TrimSpace(*req.ParentID))
	}
	return nil
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	filters := &dto.CategoryFilters{CompanyID: companyID}
	if q := r.URL.Query(); q.Has("parent_id") {
		parent := q.Get("parent_id")
		if err := httpx.RefID("parent_id", parent); err != nil {
			httpx.WriteError(w, err)
			return
		}
		filters.ParentID = &parent
	}

	cats, err := h.uc.ListCategories(r.Context(), filters)
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Categories: cats, Total: len(cats)})
}

func (h *CategoryHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	forest, err := h.uc.GetTree(r.Context(), companyID)
	if err != nil {
		h.fail(w, "tree", err)
		return
	}
	httpx.JSON(w, http.StatusOK, forest)
}

// ParentOptions serves the parent picker. ?exclude=<id> leaves out the
// category being edited and its subtree.
func (h *CategoryHandler) ParentOptions(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	options, err := h.uc.ParentOptions(r.Context(), companyID, r.URL.Query().Get("exclude"))
	if err != nil {
		h.fail(w, "parent_options", err)
		return
	}
	httpx.JSON(w, http.StatusOK, options)
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	categoryID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	cat, err := h.uc.GetCategory(r.Context(), companyID, categoryID)
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cat)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req categoryRequest
	if err := h.decode(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	cat, err := h.uc.CreateCategory(r.Context(), &dto.CreateCategoryInput{
		CompanyID:   companyID,
		ParentID:    req.ParentID,
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, cat)
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	categoryID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	var req categoryRequest
	if err := h.decode(w, r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	cat, err := h.uc.UpdateCategory(r.Context(), &dto.UpdateCategoryInput{
		ID:          categoryID,
		CompanyID:   companyID,
		ParentID:    req.ParentID,
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cat)
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyOf(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	categoryID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	res, err := h.uc.DeleteCategory(r.Context(), companyID, categoryID)
	if err != nil {
		h.fail(w, "delete", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}
