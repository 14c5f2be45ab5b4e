package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
	"github.com/fekuna/omnipos-invoice-service/internal/cache"
	"github.com/fekuna/omnipos-invoice-service/internal/category"
	"github.com/fekuna/omnipos-invoice-service/internal/category/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/category/tree"
	"github.com/fekuna/omnipos-invoice-service/internal/logger"
	"github.com/fekuna/omnipos-invoice-service/internal/metrics"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type categoryUseCase struct {
	repo     category.Repository
	cache    cache.Store
	cacheTTL time.Duration
	logger   logger.ZapLogger
	now      func() time.Time
}

// NewCategoryUseCase wires the category usecase. store may be nil, in which
// case every read goes to the repository.
func NewCategoryUseCase(repo category.Repository, store cache.Store, cacheTTL time.Duration, log logger.ZapLogger) category.UseCase {
	return &categoryUseCase{
		repo:     repo,
		cache:    store,
		cacheTTL: cacheTTL,
		logger:   log,
		now:      time.Now,
	}
}

func listCacheKey(companyID string) string {
	return "categories:list:" + companyID
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("category name is required: %w", apperror.ErrInvalidInput)
	}

	parentID := normalizeParent(input.ParentID)
	if parentID != nil {
		if err := uc.requireCategory(ctx, input.CompanyID, *parentID, "parent category"); err != nil {
			return nil, err
		}
	}

	now := uc.now()
	cat := &model.Category{
		BaseModel: model.BaseModel{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CompanyID:   input.CompanyID,
		ParentID:    parentID,
		Name:        name,
		Description: optional(input.Description),
		SortOrder:   input.SortOrder,
	}

	if err := uc.repo.Create(ctx, cat); err != nil {
		return nil, err
	}
	uc.invalidate(ctx, input.CompanyID)
	return cat, nil
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, companyID, id string) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("category %s: %w", id, apperror.ErrNotFound)
	}
	return cat, nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, error) {
	if filters.ParentID != nil {
		return uc.repo.FindAll(ctx, filters)
	}
	return uc.loadAll(ctx, filters.CompanyID)
}

// GetTree builds the forest fresh from the flat list on every call.
func (uc *categoryUseCase) GetTree(ctx context.Context, companyID string) ([]*tree.Node, error) {
	records, err := uc.loadAll(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return tree.Build(records), nil
}

// ParentOptions lists the categories a category may be placed under, in tree
// order. When excludeID is set, that category and its subtree are left out
// since choosing any of them would create a cycle.
func (uc *categoryUseCase) ParentOptions(ctx context.Context, companyID, excludeID string) ([]dto.CategoryOption, error) {
	forest, err := uc.GetTree(ctx, companyID)
	if err != nil {
		return nil, err
	}

	options := []dto.CategoryOption{}
	tree.Walk(forest, func(n *tree.Node, depth int) bool {
		if excludeID != "" && n.ID == excludeID {
			return false
		}
		options = append(options, dto.CategoryOption{
			ID:       n.ID,
			Name:     n.Name,
			ParentID: n.ParentID,
			Depth:    depth,
		})
		return true
	})
	return options, nil
}

func (uc *categoryUseCase) UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error) {
	cat, err := uc.GetCategory(ctx, input.CompanyID, input.ID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("category name is required: %w", apperror.ErrInvalidInput)
	}

	parentID := normalizeParent(input.ParentID)
	if parentID != nil {
		if *parentID == cat.ID {
			return nil, fmt.Errorf("category cannot be its own parent: %w", apperror.ErrInvalidInput)
		}
		if err := uc.requireCategory(ctx, input.CompanyID, *parentID, "parent category"); err != nil {
			return nil, err
		}
		forest, err := uc.GetTree(ctx, input.CompanyID)
		if err != nil {
			return nil, err
		}
		for _, id := range tree.Descendants(forest, cat.ID) {
			if id == *parentID {
				return nil, fmt.Errorf("category cannot be moved under its own descendant: %w", apperror.ErrInvalidInput)
			}
		}
	}

	cat.Name = name
	cat.Description = optional(input.Description)
	cat.SortOrder = input.SortOrder
	cat.ParentID = parentID
	cat.UpdatedAt = uc.now()

	if err := uc.repo.Update(ctx, cat); err != nil {
		if errors.Is(err, apperror.ErrInvalidInput) {
			// The stored tree disagreed with the cached one.
			uc.invalidate(ctx, input.CompanyID)
		}
		return nil, err
	}
	uc.invalidate(ctx, input.CompanyID)
	return cat, nil
}

// DeleteCategory removes the category and everything below it.
func (uc *categoryUseCase) DeleteCategory(ctx context.Context, companyID, id string) (*dto.DeleteResult, error) {
	if _, err := uc.GetCategory(ctx, companyID, id); err != nil {
		return nil, err
	}

	records, err := uc.repo.FindAll(ctx, &dto.CategoryFilters{CompanyID: companyID})
	if err != nil {
		return nil, err
	}
	ids := tree.Descendants(tree.Build(records), id)
	if ids == nil {
		// Not reachable from a root (dangling parent); the FK cascade still
		// takes whatever hangs below it.
		ids = []string{id}
	}

	n, err := uc.repo.DeleteMany(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, companyID)

	uc.logger.Info("Deleted category subtree",
		zap.String("company_id", companyID),
		zap.String("category_id", id),
		zap.Int64("rows", n),
	)
	return &dto.DeleteResult{DeletedIDs: ids}, nil
}

func (uc *categoryUseCase) loadAll(ctx context.Context, companyID string) ([]model.Category, error) {
	key := listCacheKey(companyID)
	if uc.cache != nil {
		var cached []model.Category
		hit, err := uc.cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			uc.logger.Warn("Category cache read failed", zap.String("key", key), zap.Error(err))
		case hit:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	records, err := uc.repo.FindAll(ctx, &dto.CategoryFilters{CompanyID: companyID})
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, records, uc.cacheTTL); err != nil {
			uc.logger.Warn("Category cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return records, nil
}

func (uc *categoryUseCase) invalidate(ctx context.Context, companyID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, listCacheKey(companyID)); err != nil {
		uc.logger.Warn("Category cache invalidation failed", zap.String("company_id", companyID), zap.Error(err))
	}
}

func (uc *categoryUseCase) requireCategory(ctx context.Context, companyID, id, what string) error {
	cat, err := uc.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return err
	}
	if cat == nil {
		return fmt.Errorf("%s %s does not exist: %w", what, id, apperror.ErrInvalidInput)
	}
	return nil
}

func normalizeParent(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := strings.TrimSpace(*id)
	return &v
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
