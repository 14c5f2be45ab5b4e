package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
	"github.com/fekuna/omnipos-invoice-service/internal/company/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

const uniqueViolation = "23505"

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) CreateCompany(ctx context.Context, c *model.Company) error {
	query := `
        INSERT INTO companies (id, name, vat_number, address, created_at, updated_at)
        VALUES (:id, :name, :vat_number, :address, :created_at, :updated_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, c)
	return err
}

func (r *PGRepository) FindCompany(ctx context.Context, id string) (*model.Company, error) {
	var c model.Company
	err := r.DB.GetContext(ctx, &c,
		`SELECT id, name, vat_number, address, created_at, updated_at FROM companies WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *PGRepository) ListCompanies(ctx context.Context) ([]model.Company, error) {
	companies := []model.Company{}
	err := r.DB.SelectContext(ctx, &companies,
		`SELECT id, name, vat_number, address, created_at, updated_at FROM companies ORDER BY name`)
	return companies, err
}

func (r *PGRepository) UpdateCompany(ctx context.Context, c *model.Company) error {
	query := `
        UPDATE companies
        SET name = :name, vat_number = :vat_number, address = :address, updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.DB.NamedExecContext(ctx, query, c)
	return err
}

func (r *PGRepository) DeleteCompany(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PGRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (id, company_id, email, full_name, role, is_active, created_at, updated_at)
        VALUES (:id, :company_id, :email, :full_name, :role, :is_active, :created_at, :updated_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, u)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("email %s is already registered: %w", u.Email, apperror.ErrConflict)
	}
	return err
}

const userColumns = `id, company_id, email, full_name, role, is_active, created_at, updated_at`

func (r *PGRepository) FindUser(ctx context.Context, id string) (*model.User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PGRepository) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PGRepository) findUser(ctx context.Context, query string, arg string) (*model.User, error) {
	var u model.User
	if err := r.DB.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *PGRepository) ListUsers(ctx context.Context, f *dto.UserFilters) ([]model.User, error) {
	users := []model.User{}
	query := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}
	if f.CompanyID != "" {
		query += ` WHERE company_id = $1`
		args = append(args, f.CompanyID)
	}
	query += ` ORDER BY email`
	err := r.DB.SelectContext(ctx, &users, query, args...)
	return users, err
}

func (r *PGRepository) UpdateUser(ctx context.Context, u *model.User) error {
	query := `
        UPDATE users
        SET full_name = :full_name, role = :role, is_active = :is_active, updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.DB.NamedExecContext(ctx, query, u)
	return err
}

func (r *PGRepository) DeleteUser(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
