package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
	"github.com/fekuna/omnipos-invoice-service/internal/category/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/database"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, c *model.Category) error {
	query := `
        INSERT INTO categories (id, company_id, parent_id, name, description, sort_order, created_at, updated_at)
        VALUES (:id, :company_id, :parent_id, :name, :description, :sort_order, :created_at, :updated_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, c)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, companyID, id string) (*model.Category, error) {
	var category model.Category
	query := `
        SELECT id, company_id, parent_id, name, description, sort_order, created_at, updated_at
        FROM categories WHERE id = $1 AND company_id = $2 LIMIT 1
    `
	err := r.DB.GetContext(ctx, &category, query, id, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.CategoryFilters) ([]model.Category, error) {
	categories := []model.Category{}

	conditions := []string{"company_id = :company_id"}
	args := map[string]interface{}{"company_id": f.CompanyID}

	if f.ParentID != nil {
		if *f.ParentID == "" {
			conditions = append(conditions, "parent_id IS NULL")
		} else {
			conditions = append(conditions, "parent_id = :parent_id")
			args["parent_id"] = *f.ParentID
		}
	}

	query := `
        SELECT id, company_id, parent_id, name, description, sort_order, created_at, updated_at
        FROM categories WHERE ` + strings.Join(conditions, " AND ") + `
        ORDER BY sort_order ASC, name ASC
    `
	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &categories, args); err != nil {
		return nil, err
	}
	return categories, nil
}

// Update saves c. Moves within a company are serialised by an advisory
// lock, and the new parent's stored ancestry is checked inside the same
// transaction so two concurrent moves cannot close a loop.
func (r *PGRepository) Update(ctx context.Context, c *model.Category) error {
	return database.WithTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "categories:"+c.CompanyID); err != nil {
			return err
		}

		if c.ParentID != nil {
			var loops bool
			query := `
        WITH RECURSIVE ancestors AS (
            SELECT id, parent_id FROM categories WHERE id = $1 AND company_id = $2
            UNION
            SELECT p.id, p.parent_id
            FROM categories p JOIN ancestors a ON p.id = a.parent_id
        )
        SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $3)
    `
			if err := tx.GetContext(ctx, &loops, query, *c.ParentID, c.CompanyID, c.ID); err != nil {
				return err
			}
			if loops {
				return fmt.Errorf("category %s cannot be moved under its own descendant: %w", c.ID, apperror.ErrInvalidInput)
			}
		}

		query := `
        UPDATE categories
        SET parent_id = :parent_id,
            name = :name,
            description = :description,
            sort_order = :sort_order,
            updated_at = :updated_at
        WHERE id = :id AND company_id = :company_id
    `
		res, err := sqlx.NamedExecContext(ctx, tx, query, c)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("category %s: %w", c.ID, apperror.ErrNotFound)
		}
		return nil
	})
}

// DeleteMany removes the given categories. The parent_id foreign key cascades,
// so rows below them go too even if ids misses some.
func (r *PGRepository) DeleteMany(ctx context.Context, companyID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM categories WHERE company_id = ? AND id IN (?)`, companyID, ids)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
