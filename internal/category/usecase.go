package category

import (
	"context"

	"github.com/fekuna/omnipos-invoice-service/internal/category/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/category/tree"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type UseCase interface {
	CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error)
	GetCategory(ctx context.Context, companyID, id string) (*model.Category, error)
	ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, error)
	GetTree(ctx context.Context, companyID string) ([]*tree.Node, error)
	ParentOptions(ctx context.Context, companyID, excludeID string) ([]dto.CategoryOption, error)
	UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, companyID, id string) (*dto.DeleteResult, error)
}
