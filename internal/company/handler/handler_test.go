package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
	"github.com/fekuna/omnipos-invoice-service/internal/auth"
	"github.com/fekuna/omnipos-invoice-service/internal/company/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/logger"
	"github.com/fekuna/omnipos-invoice-service/internal/middleware"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

const (
	testCompany = "0b7d3b9e-5d55-4a6a-8c3e-2f43a1f1c0de"
	otherCo     = "d2c1b0a9-8f7e-4d6c-9b5a-493827160514"
	userA       = "a1a2a3a4-b1b2-4c1c-8d1d-e1e2e3e4e5e6"
	userB       = "b1b2b3b4-c1c2-4d1d-9e1e-f1f2f3f4f5f6"
)

type mockUseCase struct {
	mock.Mock
}

func (m *mockUseCase) ListCompanies(ctx context.Context, caller auth.Identity) ([]model.Company, error) {
	args := m.Called(ctx, caller)
	c, _ := args.Get(0).([]model.Company)
	return c, args.Error(1)
}

func (m *mockUseCase) GetCompany(ctx context.Context, caller auth.Identity, id string) (*model.Company, error) {
	args := m.Called(ctx, caller, id)
	c, _ := args.Get(0).(*model.Company)
	return c, args.Error(1)
}

func (m *mockUseCase) CreateCompany(ctx context.Context, caller auth.Identity, in *dto.CompanyInput) (*model.Company, error) {
	args := m.Called(ctx, caller, in)
	c, _ := args.Get(0).(*model.Company)
	return c, args.Error(1)
}

func (m *mockUseCase) UpdateCompany(ctx context.Context, caller auth.Identity, in *dto.CompanyInput) (*model.Company, error) {
	args := m.Called(ctx, caller, in)
	c, _ := args.Get(0).(*model.Company)
	return c, args.Error(1)
}

func (m *mockUseCase) DeleteCompany(ctx context.Context, caller auth.Identity, id string) error {
	return m.Called(ctx, caller, id).Error(0)
}

func (m *mockUseCase) ListUsers(ctx context.Context, caller auth.Identity, f *dto.UserFilters) ([]model.User, error) {
	args := m.Called(ctx, caller, f)
	u, _ := args.Get(0).([]model.User)
	return u, args.Error(1)
}

func (m *mockUseCase) GetUser(ctx context.Context, caller auth.Identity, id string) (*model.User, error) {
	args := m.Called(ctx, caller, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUseCase) CreateUser(ctx context.Context, caller auth.Identity, in *dto.CreateUserInput) (*model.User, error) {
	args := m.Called(ctx, caller, in)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUseCase) UpdateUser(ctx context.Context, caller auth.Identity, in *dto.UpdateUserInput) (*model.User, error) {
	args := m.Called(ctx, caller, in)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUseCase) DeleteUser(ctx context.Context, caller auth.Identity, id string) error {
	return m.Called(ctx, caller, id).Error(0)
}

func newRouter(uc *mockUseCase) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Identity)
	NewCompanyHandler(uc, logger.NewNop()).RegisterRoutes(api)
	return r
}

func doAs(r http.Handler, role, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set(middleware.HeaderCompanyID, testCompany)
	req.Header.Set(middleware.HeaderUserID, "u1")
	req.Header.Set(middleware.HeaderUserRole, role)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func asAdmin() interface{} {
	return auth.Identity{CompanyID: testCompany, UserID: "u1", Role: auth.RoleAdmin}
}

func TestListCompanies_PassesCaller(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("ListCompanies", mock.Anything, asAdmin()).Return([]model.Company{{Name: "Acme"}}, nil)

	rec := doAs(newRouter(uc), "admin", http.MethodGet, "/api/companies", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body []model.Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "Acme", body[0].Name)
}

func TestCompanyRoutes_RequireAdmin(t *testing.T) {
	uc := new(mockUseCase)
	r := newRouter(uc)

	assert.Equal(t, http.StatusForbidden, doAs(r, "accountant", http.MethodGet, "/api/companies", "").Code)
	assert.Equal(t, http.StatusForbidden, doAs(r, "user", http.MethodGet, "/api/users", "").Code)
	uc.AssertNotCalled(t, "ListCompanies", mock.Anything, mock.Anything)
}

func TestCreateCompany_ForbiddenForAdmin(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("CreateCompany", mock.Anything, asAdmin(), &dto.CompanyInput{Name: "Globex"}).
		Return(nil, apperror.ErrForbidden)

	rec := doAs(newRouter(uc), "admin", http.MethodPost, "/api/companies", `{"name":"Globex"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateCompany_UsesPathID(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("UpdateCompany", mock.Anything, mock.Anything, &dto.CompanyInput{ID: otherCo, Name: "Acme GmbH"}).
		Return(&model.Company{Name: "Acme GmbH"}, nil)

	rec := doAs(newRouter(uc), "super_admin", http.MethodPut, "/api/companies/"+otherCo, `{"name":"Acme GmbH"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	uc.AssertExpectations(t)
}

func TestDeleteCompany_NoContent(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("DeleteCompany", mock.Anything, mock.Anything, otherCo).Return(nil)

	rec := doAs(newRouter(uc), "super_admin", http.MethodDelete, "/api/companies/"+otherCo, "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListUsers_CompanyQuery(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("ListUsers", mock.Anything, mock.Anything, &dto.UserFilters{CompanyID: otherCo}).Return([]model.User{}, nil)

	rec := doAs(newRouter(uc), "super_admin", http.MethodGet, "/api/users?company_id="+otherCo, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateUser(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("CreateUser", mock.Anything, asAdmin(), &dto.CreateUserInput{
		Email:    "jane@acme.example",
		FullName: "Jane",
		Role:     "Accountant",
	}).Return(&model.User{Email: "jane@acme.example", Role: "accountant"}, nil)

	rec := doAs(newRouter(uc), "admin", http.MethodPost, "/api/users",
		`{"email":"jane@acme.example","full_name":"Jane","role":"Accountant"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"accountant"`)
}

func TestCreateUser_Conflict(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("CreateUser", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.Join(errors.New("email taken"), apperror.ErrConflict))

	rec := doAs(newRouter(uc), "admin", http.MethodPost, "/api/users", `{"email":"a@b.example","role":"user"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateUser_DefaultsActive(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("UpdateUser", mock.Anything, mock.Anything, &dto.UpdateUserInput{ID: userA, Role: "user", IsActive: true}).
		Return(&model.User{}, nil)
	uc.On("UpdateUser", mock.Anything, mock.Anything, &dto.UpdateUserInput{ID: userB, Role: "user", IsActive: false}).
		Return(&model.User{}, nil)
	r := newRouter(uc)

	assert.Equal(t, http.StatusOK, doAs(r, "admin", http.MethodPut, "/api/users/"+userA, `{"role":"user"}`).Code)
	assert.Equal(t, http.StatusOK, doAs(r, "admin", http.MethodPut, "/api/users/"+userB, `{"role":"user","is_active":false}`).Code)
	uc.AssertExpectations(t)
}

func TestGetUser_InternalErrorMasked(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("GetUser", mock.Anything, mock.Anything, userA).Return(nil, errors.New("pq: connection reset"))

	rec := doAs(newRouter(uc), "admin", http.MethodGet, "/api/users/"+userA, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestMalformedIDs(t *testing.T) {
	uc := new(mockUseCase)
	r := newRouter(uc)

	for _, tc := range []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodGet, "/api/companies/acme", "", http.StatusNotFound},
		{http.MethodPut, "/api/companies/acme", `{"name":"Acme"}`, http.StatusNotFound},
		{http.MethodDelete, "/api/companies/acme", "", http.StatusNotFound},
		{http.MethodGet, "/api/users/u1", "", http.StatusNotFound},
		{http.MethodPut, "/api/users/u1", `{"role":"user"}`, http.StatusNotFound},
		{http.MethodDelete, "/api/users/u1", "", http.StatusNotFound},
		{http.MethodGet, "/api/users?company_id=acme", "", http.StatusBadRequest},
		{http.MethodPost, "/api/users", `{"company_id":"acme","email":"a@b.example","role":"user"}`, http.StatusBadRequest},
	} {
		rec := doAs(r, "super_admin", tc.method, tc.target, tc.body)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.target)
	}
	assert.Empty(t, uc.Calls)
}
