package category

import (
	"context"

	"github.com/fekuna/omnipos-invoice-service/internal/category/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, companyID, id string) (*model.Category, error)
	FindAll(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	DeleteMany(ctx context.Context, companyID string, ids []string) (int64, error)
}
