package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
	"github.com/fekuna/omnipos-invoice-service/internal/auth"
	"github.com/fekuna/omnipos-invoice-service/internal/company/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/logger"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateCompany(ctx context.Context, c *model.Company) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockRepo) FindCompany(ctx context.Context, id string) (*model.Company, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*model.Company)
	return c, args.Error(1)
}

func (m *mockRepo) ListCompanies(ctx context.Context) ([]model.Company, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]model.Company)
	return cs, args.Error(1)
}

func (m *mockRepo) UpdateCompany(ctx context.Context, c *model.Company) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockRepo) DeleteCompany(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) CreateUser(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepo) FindUser(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockRepo) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockRepo) ListUsers(ctx context.Context, f *dto.UserFilters) ([]model.User, error) {
	args := m.Called(ctx, f)
	us, _ := args.Get(0).([]model.User)
	return us, args.Error(1)
}

func (m *mockRepo) UpdateUser(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepo) DeleteUser(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

var (
	ctx        = context.Background()
	fixedNow   = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)
	superAdmin = auth.Identity{CompanyID: "c1", UserID: "root", Role: auth.RoleSuperAdmin}
	admin      = auth.Identity{CompanyID: "c1", UserID: "boss", Role: auth.RoleAdmin}
	accountant = auth.Identity{CompanyID: "c1", UserID: "acc", Role: auth.RoleAccountant}
	acme       = &model.Company{BaseModel: model.BaseModel{ID: "c1"}, Name: "Acme"}
)

func newUseCase(repo *mockRepo) *companyUseCase {
	uc := NewCompanyUseCase(repo, logger.NewNop()).(*companyUseCase)
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func user(id, companyID string, role auth.Role) *model.User {
	return &model.User{
		BaseModel: model.BaseModel{ID: id},
		CompanyID: companyID,
		Email:     id + "@example.com",
		Role:      role.String(),
		IsActive:  true,
	}
}

func TestListCompanies_SuperAdminSeesAll(t *testing.T) {
	repo := new(mockRepo)
	all := []model.Company{*acme, {BaseModel: model.BaseModel{ID: "c2"}, Name: "Globex"}}
	repo.On("ListCompanies", ctx).Return(all, nil)

	got, err := newUseCase(repo).ListCompanies(ctx, superAdmin)

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListCompanies_AdminSeesOwnOnly(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindCompany", ctx, "c1").Return(acme, nil)

	got, err := newUseCase(repo).ListCompanies(ctx, admin)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Name)
	repo.AssertNotCalled(t, "ListCompanies", mock.Anything)
}

func TestListCompanies_AccountantForbidden(t *testing.T) {
	_, err := newUseCase(new(mockRepo)).ListCompanies(ctx, accountant)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestGetCompany_OtherTenantIsNotFound(t *testing.T) {
	repo := new(mockRepo)

	_, err := newUseCase(repo).GetCompany(ctx, admin, "c2")

	assert.ErrorIs(t, err, apperror.ErrNotFound)
	repo.AssertNotCalled(t, "FindCompany", mock.Anything, mock.Anything)
}

func TestCreateCompany(t *testing.T) {
	repo := new(mockRepo)
	repo.On("CreateCompany", ctx, mock.AnythingOfType("*model.Company")).Return(nil)

	got, err := newUseCase(repo).CreateCompany(ctx, superAdmin, &dto.CompanyInput{
		Name:      "  Globex ",
		VATNumber: "de 123 456 789",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Globex", got.Name)
	assert.Equal(t, "DE123456789", got.VATNumber)
	assert.Equal(t, fixedNow, got.CreatedAt)
}

func TestCreateCompany_Validation(t *testing.T) {
	uc := newUseCase(new(mockRepo))

	_, err := uc.CreateCompany(ctx, admin, &dto.CompanyInput{Name: "Globex"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = uc.CreateCompany(ctx, superAdmin, &dto.CompanyInput{Name: "   "})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestUpdateCompany(t *testing.T) {
	repo := new(mockRepo)
	existing := *acme
	repo.On("FindCompany", ctx, "c1").Return(&existing, nil)
	repo.On("UpdateCompany", ctx, &existing).Return(nil)

	got, err := newUseCase(repo).UpdateCompany(ctx, superAdmin, &dto.CompanyInput{ID: "c1", Name: "Acme GmbH", Address: " Main St 1 "})

	require.NoError(t, err)
	assert.Equal(t, "Acme GmbH", got.Name)
	assert.Equal(t, "Main St 1", got.Address)
	assert.Equal(t, fixedNow, got.UpdatedAt)
}

func TestDeleteCompany(t *testing.T) {
	repo := new(mockRepo)
	repo.On("DeleteCompany", ctx, "c1").Return(true, nil)
	repo.On("DeleteCompany", ctx, "gone").Return(false, nil)
	uc := newUseCase(repo)

	assert.NoError(t, uc.DeleteCompany(ctx, superAdmin, "c1"))
	assert.ErrorIs(t, uc.DeleteCompany(ctx, superAdmin, "gone"), apperror.ErrNotFound)
	assert.ErrorIs(t, uc.DeleteCompany(ctx, admin, "c1"), apperror.ErrForbidden)
}

func TestListUsers_ScopedToCallerCompany(t *testing.T) {
	repo := new(mockRepo)
	repo.On("ListUsers", ctx, &dto.UserFilters{CompanyID: "c1"}).Return([]model.User{*user("u1", "c1", auth.RoleUser)}, nil)

	got, err := newUseCase(repo).ListUsers(ctx, admin, &dto.UserFilters{CompanyID: "c2"})

	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListUsers_SuperAdminAcrossCompanies(t *testing.T) {
	repo := new(mockRepo)
	repo.On("ListUsers", ctx, &dto.UserFilters{}).Return([]model.User{}, nil)

	_, err := newUseCase(repo).ListUsers(ctx, superAdmin, &dto.UserFilters{})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestGetUser_OtherCompanyIsNotFound(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindUser", ctx, "u9").Return(user("u9", "c2", auth.RoleUser), nil)

	_, err := newUseCase(repo).GetUser(ctx, admin, "u9")

	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCreateUser_NormalisesEmailAndRole(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindCompany", ctx, "c1").Return(acme, nil)
	repo.On("FindUserByEmail", ctx, "jane@acme.example").Return(nil, nil)
	repo.On("CreateUser", ctx, mock.AnythingOfType("*model.User")).Return(nil)

	got, err := newUseCase(repo).CreateUser(ctx, admin, &dto.CreateUserInput{
		Email:    "  Jane@Acme.Example ",
		FullName: "Jane Doe",
		Role:     "Accountant",
	})

	require.NoError(t, err)
	assert.Equal(t, "c1", got.CompanyID)
	assert.Equal(t, "jane@acme.example", got.Email)
	assert.Equal(t, "accountant", got.Role)
	assert.True(t, got.IsActive)
}

func TestCreateUser_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		caller auth.Identity
		input  dto.CreateUserInput
		want   error
	}{
		{"accountant cannot manage users", accountant, dto.CreateUserInput{Email: "a@b.example", Role: "user"}, apperror.ErrForbidden},
		{"admin cannot grant super admin", admin, dto.CreateUserInput{Email: "a@b.example", Role: "Super Admin"}, apperror.ErrForbidden},
		{"admin cannot add to another company", admin, dto.CreateUserInput{CompanyID: "c2", Email: "a@b.example", Role: "user"}, apperror.ErrForbidden},
		{"unknown role", admin, dto.CreateUserInput{Email: "a@b.example", Role: "owner"}, apperror.ErrInvalidInput},
		{"bad email", admin, dto.CreateUserInput{Email: "not-an-email", Role: "user"}, apperror.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			input := tt.input

			_, err := newUseCase(repo).CreateUser(ctx, tt.caller, &input)

			assert.ErrorIs(t, err, tt.want)
			repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindCompany", ctx, "c1").Return(acme, nil)
	repo.On("FindUserByEmail", ctx, "jane@acme.example").Return(user("jane", "c1", auth.RoleUser), nil)

	_, err := newUseCase(repo).CreateUser(ctx, admin, &dto.CreateUserInput{Email: "JANE@acme.example", Role: "user"})

	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestCreateUser_UnknownCompany(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindCompany", ctx, "c9").Return(nil, nil)

	_, err := newUseCase(repo).CreateUser(ctx, superAdmin, &dto.CreateUserInput{CompanyID: "c9", Email: "a@b.example", Role: "user"})

	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestUpdateUser(t *testing.T) {
	repo := new(mockRepo)
	target := user("u1", "c1", auth.RoleUser)
	repo.On("FindUser", ctx, "u1").Return(target, nil)
	repo.On("UpdateUser", ctx, target).Return(nil)

	got, err := newUseCase(repo).UpdateUser(ctx, admin, &dto.UpdateUserInput{ID: "u1", FullName: "U One", Role: "admin", IsActive: false})

	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
	assert.False(t, got.IsActive)
	assert.Equal(t, fixedNow, got.UpdatedAt)
}

func TestUpdateUser_CannotTouchHigherRole(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindUser", ctx, "root2").Return(user("root2", "c1", auth.RoleSuperAdmin), nil)

	_, err := newUseCase(repo).UpdateUser(ctx, admin, &dto.UpdateUserInput{ID: "root2", Role: "user"})

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
}

func TestDeleteUser(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindUser", ctx, "u1").Return(user("u1", "c1", auth.RoleAccountant), nil)
	repo.On("FindUser", ctx, "boss").Return(user("boss", "c1", auth.RoleAdmin), nil)
	repo.On("DeleteUser", ctx, "u1").Return(true, nil)
	uc := newUseCase(repo)

	assert.NoError(t, uc.DeleteUser(ctx, admin, "u1"))
	assert.ErrorIs(t, uc.DeleteUser(ctx, admin, "boss"), apperror.ErrConflict)
}
