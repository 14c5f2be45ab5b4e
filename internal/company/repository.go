package company

import (
	"context"

	"github.com/fekuna/omnipos-invoice-service/internal/company/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type Repository interface {
	CreateCompany(ctx context.Context, company *model.Company) error
	FindCompany(ctx context.Context, id string) (*model.Company, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)
	UpdateCompany(ctx context.Context, company *model.Company) error
	// DeleteCompany removes the company and, by cascade, everything it owns.
	DeleteCompany(ctx context.Context, id string) (bool, error)

	// CreateUser returns an error wrapping apperror.ErrConflict when the
	// email is taken.
	CreateUser(ctx context.Context, user *model.User) error
	FindUser(ctx context.Context, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, filters *dto.UserFilters) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) (bool, error)
}
