package company

import (
	"context"

	"github.com/fekuna/omnipos-invoice-service/internal/auth"
	"github.com/fekuna/omnipos-invoice-service/internal/company/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

// UseCase administers tenants and their users. Every call takes the caller so
// tenant scoping and role ceilings are enforced in one place.
type UseCase interface {
	ListCompanies(ctx context.Context, caller auth.Identity) ([]model.Company, error)
	GetCompany(ctx context.Context, caller auth.Identity, id string) (*model.Company, error)
	CreateCompany(ctx context.Context, caller auth.Identity, input *dto.CompanyInput) (*model.Company, error)
	UpdateCompany(ctx context.Context, caller auth.Identity, input *dto.CompanyInput) (*model.Company, error)
	DeleteCompany(ctx context.Context, caller auth.Identity, id string) error

	ListUsers(ctx context.Context, caller auth.Identity, filters *dto.UserFilters) ([]model.User, error)
	GetUser(ctx context.Context, caller auth.Identity, id string) (*model.User, error)
	CreateUser(ctx context.Context, caller auth.Identity, input *dto.CreateUserInput) (*model.User, error)
	UpdateUser(ctx context.Context, caller auth.Identity, input *dto.UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, caller auth.Identity, id string) error
}
