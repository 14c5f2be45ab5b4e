package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fekuna/omnipos-invoice-service/internal/apperror"
	"github.com/fekuna/omnipos-invoice-service/internal/database"
	"github.com/fekuna/omnipos-invoice-service/internal/invoice/dto"
	"github.com/fekuna/omnipos-invoice-service/internal/model"
)

const invoiceColumns = `id, company_id, type, number, counterparty_name, counterparty_vat,
            issue_date, due_date, currency, status, document_url, notes,
            net_total, vat_total, gross_total, created_by, created_at, updated_at`

const lineColumns = `id, invoice_id, position, description, quantity, unit, unit_price,
            vat_rate, net_amount, vat_amount, gross_amount, category_id`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, inv *model.Invoice) error {
	query := `
        INSERT INTO invoices (` + invoiceColumns + `)
        VALUES (
            :id, :company_id, :type, :number, :counterparty_name, :counterparty_vat,
            :issue_date, :due_date, :currency, :status, :document_url, :notes,
            :net_total, :vat_total, :gross_total, :created_by, :created_at, :updated_at
        )
    `
	return database.WithTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, inv); err != nil {
			return err
		}
		return insertLines(ctx, tx, inv.Lines)
	})
}

func insertLines(ctx context.Context, tx *sqlx.Tx, lines []model.InvoiceLine) error {
	if len(lines) == 0 {
		return nil
	}
	query := `
        INSERT INTO invoice_lines (` + lineColumns + `)
        VALUES (
            :id, :invoice_id, :position, :description, :quantity, :unit, :unit_price,
            :vat_rate, :net_amount, :vat_amount, :gross_amount, :category_id
        )
    `
	_, err := tx.NamedExecContext(ctx, query, lines)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, companyID, id string) (*model.Invoice, error) {
	var inv model.Invoice
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND company_id = $2 LIMIT 1`
	err := r.DB.GetContext(ctx, &inv, query, id, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	inv.Lines = []model.InvoiceLine{}
	err = r.DB.SelectContext(ctx, &inv.Lines,
		`SELECT `+lineColumns+` FROM invoice_lines WHERE invoice_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func buildWhere(f *dto.InvoiceFilters) (string, map[string]interface{}) {
	conditions := []string{"company_id = :company_id"}
	args := map[string]interface{}{"company_id": f.CompanyID}

	if f.Type != "" {
		conditions = append(conditions, "type = :type")
		args["type"] = string(f.Type)
	}
	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = string(f.Status)
	}
	if f.IssuedFrom != nil {
		conditions = append(conditions, "issue_date >= :issued_from")
		args["issued_from"] = *f.IssuedFrom
	}
	if f.IssuedTo != nil {
		conditions = append(conditions, "issue_date <= :issued_to")
		args["issued_to"] = *f.IssuedTo
	}
	if f.SearchQuery != "" {
		conditions = append(conditions,
			"(number ILIKE :search OR counterparty_name ILIKE :search OR counterparty_vat ILIKE :search OR notes ILIKE :search)")
		args["search"] = "%" + f.SearchQuery + "%"
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.InvoiceFilters) ([]model.Invoice, int, error) {
	invoices := []model.Invoice{}
	var count int

	whereClause, args := buildWhere(f)

	countStmt, err := r.DB.PrepareNamedContext(ctx, "SELECT count(*) FROM invoices"+whereClause)
	if err != nil {
		return nil, 0, err
	}
	defer countStmt.Close()
	if err := countStmt.GetContext(ctx, &count, args); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + invoiceColumns + " FROM invoices" + whereClause + " ORDER BY issue_date DESC, created_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &invoices, args); err != nil {
		return nil, 0, err
	}
	return invoices, count, nil
}

func (r *PGRepository) FindWithLines(ctx context.Context, f *dto.InvoiceFilters) ([]model.Invoice, error) {
	invoices := []model.Invoice{}
	whereClause, args := buildWhere(f)

	nstmt, err := r.DB.PrepareNamedContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices"+whereClause+" ORDER BY issue_date ASC, number ASC")
	if err != nil {
		return nil, err
	}
	defer nstmt.Close()
	if err := nstmt.SelectContext(ctx, &invoices, args); err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return invoices, nil
	}

	ids := make([]string, len(invoices))
	byID := make(map[string]*model.Invoice, len(invoices))
	for i := range invoices {
		invoices[i].Lines = []model.InvoiceLine{}
		ids[i] = invoices[i].ID
		byID[invoices[i].ID] = &invoices[i]
	}

	query, inArgs, err := sqlx.In(
		`SELECT `+lineColumns+` FROM invoice_lines WHERE invoice_id IN (?) ORDER BY invoice_id, position`, ids)
	if err != nil {
		return nil, err
	}
	var lines []model.InvoiceLine
	if err := r.DB.SelectContext(ctx, &lines, r.DB.Rebind(query), inArgs...); err != nil {
		return nil, err
	}
	for _, l := range lines {
		if inv, ok := byID[l.InvoiceID]; ok {
			inv.Lines = append(inv.Lines, l)
		}
	}
	return invoices, nil
}

// editGuard matches an invoice that is still editable and unchanged since
// it was read at :prev_updated_at.
const editGuard = `id = :id AND company_id = :company_id
            AND status <> 'exported' AND updated_at = :prev_updated_at`

type guarded struct {
	*model.Invoice
	PrevUpdatedAt time.Time `db:"prev_updated_at"`
}

func (r *PGRepository) UpdateHeader(ctx context.Context, inv *model.Invoice, prevUpdatedAt time.Time) error {
	query := `
        UPDATE invoices
        SET type = :type,
            number = :number,
            counterparty_name = :counterparty_name,
            counterparty_vat = :counterparty_vat,
            issue_date = :issue_date,
            due_date = :due_date,
            currency = :currency,
            notes = :notes,
            updated_at = :updated_at
        WHERE ` + editGuard
	res, err := r.DB.NamedExecContext(ctx, query, guarded{inv, prevUpdatedAt})
	if err != nil {
		return err
	}
	return requireOne(res, inv.ID)
}

// SaveLines claims the header first so a concurrent edit fails before any
// line is touched.
func (r *PGRepository) SaveLines(ctx context.Context, inv *model.Invoice, prevUpdatedAt time.Time) error {
	totals := `
        UPDATE invoices
        SET net_total = :net_total,
            vat_total = :vat_total,
            gross_total = :gross_total,
            updated_at = :updated_at
        WHERE ` + editGuard
	return database.WithTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, totals, guarded{inv, prevUpdatedAt})
		if err != nil {
			return err
		}
		if err := requireOne(res, inv.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, inv.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, inv.Lines)
	})
}

func requireOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("invoice %s was changed or exported meanwhile: %w", id, apperror.ErrConflict)
	}
	return nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, inv *model.Invoice, from model.InvoiceStatus, prevUpdatedAt time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE invoices SET status = $1, updated_at = $2
        WHERE id = $3 AND company_id = $4 AND status = $5 AND updated_at = $6`,
		string(inv.Status), inv.UpdatedAt, inv.ID, inv.CompanyID, string(from), prevUpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PGRepository) MarkExported(ctx context.Context, companyID string, seen map[string]time.Time, at time.Time) ([]string, error) {
	marked := []string{}
	if len(seen) == 0 {
		return marked, nil
	}
	ids := make([]string, 0, len(seen))
	versions := make([]time.Time, 0, len(seen))
	for id, v := range seen {
		ids = append(ids, id)
		versions = append(versions, v)
	}
	query := `
        UPDATE invoices i SET status = $1, updated_at = $2
        FROM unnest($3::uuid[], $4::timestamptz[]) AS v(id, updated_at)
        WHERE i.company_id = $5 AND i.status = $6
          AND i.id = v.id AND i.updated_at = v.updated_at
        RETURNING i.id`
	err := r.DB.SelectContext(ctx, &marked, query,
		string(model.InvoiceStatusExported), at, ids, versions, companyID, string(model.InvoiceStatusReviewed))
	if err != nil {
		return nil, err
	}
	return marked, nil
}

func (r *PGRepository) Delete(ctx context.Context, companyID, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
