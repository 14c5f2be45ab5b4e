package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
	"github.com/fekuna/omnipos-invoice-service/internal/auth"
	"github.com/fekuna/omnipos-invoice-service/internal/company"
	"github.com/fekuna/omnipos-invoice-service/internal/company/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/logger"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type companyUseCase struct {
	repo   company.Repository
	logger logger.ZapLogger
	now    func() time.Time
}

func NewCompanyUseCase(repo company.Repository, log logger.ZapLogger) company.UseCase {
	return &companyUseCase{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
}

func requireSuperAdmin(caller auth.Identity) error {
	if caller.Role != auth.RoleSuperAdmin {
		return fmt.Errorf("requires role %s: %w", auth.RoleSuperAdmin, apperror.ErrForbidden)
	}
	return nil
}

func (uc *companyUseCase) ListCompanies(ctx context.Context, caller auth.Identity) ([]model.Company, error) {
	if caller.Role == auth.RoleSuperAdmin {
		return uc.repo.ListCompanies(ctx)
	}
	own, err := uc.GetCompany(ctx, caller, caller.CompanyID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return []model.Company{}, nil
		}
		return nil, err
	}
	return []model.Company{*own}, nil
}

func (uc *companyUseCase) GetCompany(ctx context.Context, caller auth.Identity, id string) (*model.Company, error) {
	if !caller.Role.AtLeast(auth.RoleAdmin) {
		return nil, fmt.Errorf("requires role %s: %w", auth.RoleAdmin, apperror.ErrForbidden)
	}
	if !caller.CanAccessCompany(id) {
		return nil, fmt.Errorf("company %s: %w", id, apperror.ErrNotFound)
	}
	c, err := uc.repo.FindCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("company %s: %w", id, apperror.ErrNotFound)
	}
	return c, nil
}

func (uc *companyUseCase) CreateCompany(ctx context.Context, caller auth.Identity, input *dto.CompanyInput) (*model.Company, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("company name is required: %w", apperror.ErrInvalidInput)
	}

	now := uc.now()
	c := &model.Company{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:      name,
		VATNumber: strings.ToUpper(strings.ReplaceAll(input.VATNumber, " ", "")),
		Address:   strings.TrimSpace(input.Address),
	}
	if err := uc.repo.CreateCompany(ctx, c); err != nil {
		return nil, err
	}
	uc.logger.Info("Created company", zap.String("company_id", c.ID), zap.String("by", caller.UserID))
	return c, nil
}

func (uc *companyUseCase) UpdateCompany(ctx context.Context, caller auth.Identity, input *dto.CompanyInput) (*model.Company, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}
	c, err := uc.GetCompany(ctx, caller, input.ID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("company name is required: %w", apperror.ErrInvalidInput)
	}

	c.Name = name
	c.VATNumber = strings.ToUpper(strings.ReplaceAll(input.VATNumber, " ", ""))
	c.Address = strings.TrimSpace(input.Address)
	c.UpdatedAt = uc.now()
	if err := uc.repo.UpdateCompany(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (uc *companyUseCase) DeleteCompany(ctx context.Context, caller auth.Identity, id string) error {
	if err := requireSuperAdmin(caller); err != nil {
		return err
	}
	ok, err := uc.repo.DeleteCompany(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("company %s: %w", id, apperror.ErrNotFound)
	}
	uc.logger.Warn("Deleted company and all its data", zap.String("company_id", id), zap.String("by", caller.UserID))
	return nil
}

func (uc *companyUseCase) ListUsers(ctx context.Context, caller auth.Identity, filters *dto.UserFilters) ([]model.User, error) {
	if !caller.Role.AtLeast(auth.RoleAdmin) {
		return nil, fmt.Errorf("requires role %s: %w", auth.RoleAdmin, apperror.ErrForbidden)
	}
	scoped := *filters
	if caller.Role != auth.RoleSuperAdmin {
		scoped.CompanyID = caller.CompanyID
	}
	return uc.repo.ListUsers(ctx, &scoped)
}

func (uc *companyUseCase) GetUser(ctx context.Context, caller auth.Identity, id string) (*model.User, error) {
	if !caller.Role.AtLeast(auth.RoleAdmin) {
		return nil, fmt.Errorf("requires role %s: %w", auth.RoleAdmin, apperror.ErrForbidden)
	}
	u, err := uc.repo.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil || !caller.CanAccessCompany(u.CompanyID) {
		return nil, fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
	}
	return u, nil
}

func (uc *companyUseCase) CreateUser(ctx context.Context, caller auth.Identity, input *dto.CreateUserInput) (*model.User, error) {
	if !caller.Role.AtLeast(auth.RoleAdmin) {
		return nil, fmt.Errorf("requires role %s: %w", auth.RoleAdmin, apperror.ErrForbidden)
	}

	companyID := input.CompanyID
	if companyID == "" {
		companyID = caller.CompanyID
	}
	if !caller.CanAccessCompany(companyID) {
		return nil, fmt.Errorf("cannot add users to company %s: %w", companyID, apperror.ErrForbidden)
	}
	role, err := grantableRole(caller, input.Role)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	c, err := uc.repo.FindCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("company %s does not exist: %w", companyID, apperror.ErrInvalidInput)
	}
	existing, err := uc.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email %s is already registered: %w", email, apperror.ErrConflict)
	}

	now := uc.now()
	u := &model.User{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		CompanyID: companyID,
		Email:     email,
		FullName:  strings.TrimSpace(input.FullName),
		Role:      role.String(),
		IsActive:  true,
	}
	if err := uc.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *companyUseCase) UpdateUser(ctx context.Context, caller auth.Identity, input *dto.UpdateUserInput) (*model.User, error) {
	u, err := uc.GetUser(ctx, caller, input.ID)
	if err != nil {
		return nil, err
	}
	if err := outranks(caller, u); err != nil {
		return nil, err
	}
	role, err := grantableRole(caller, input.Role)
	if err != nil {
		return nil, err
	}

	u.FullName = strings.TrimSpace(input.FullName)
	u.Role = role.String()
	u.IsActive = input.IsActive
	u.UpdatedAt = uc.now()
	if err := uc.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *companyUseCase) DeleteUser(ctx context.Context, caller auth.Identity, id string) error {
	u, err := uc.GetUser(ctx, caller, id)
	if err != nil {
		return err
	}
	if u.ID == caller.UserID {
		return fmt.Errorf("cannot delete your own account: %w", apperror.ErrConflict)
	}
	if err := outranks(caller, u); err != nil {
		return err
	}
	ok, err := uc.repo.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}

// grantableRole parses raw and checks the caller may hand it out.
func grantableRole(caller auth.Identity, raw string) (auth.Role, error) {
	role, err := auth.ParseRole(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", err.Error(), apperror.ErrInvalidInput)
	}
	if !caller.Role.AtLeast(role) {
		return "", fmt.Errorf("cannot grant role %s above your own: %w", role, apperror.ErrForbidden)
	}
	return role, nil
}

// outranks checks the caller is at least the target's current role. Stored
// roles that no longer parse are treated as the lowest role.
func outranks(caller auth.Identity, target *model.User) error {
	current, err := auth.ParseRole(target.Role)
	if err != nil {
		current = auth.RoleUser
	}
	if !caller.Role.AtLeast(current) {
		return fmt.Errorf("cannot modify a user with role %s: %w", current, apperror.ErrForbidden)
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("email %q is not valid: %w", raw, apperror.ErrInvalidInput)
	}
	return email, nil
}
