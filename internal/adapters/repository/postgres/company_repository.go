package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/company"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	pgdb "github.com/ogurasousui/codex-ats-pipeline/internal/platform/db/postgres"
)

const companyColumns = `id, name, slug, status, created_at, updated_at`

// CompanyRepository は PostgreSQL を利用した会社永続化の実装です。
type CompanyRepository struct {
	pool pgdb.Queryer
}

// NewCompanyRepository は CompanyRepository を生成します。
func NewCompanyRepository(pool pgdb.Queryer) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// Create は会社を新規作成します。
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO companies (name, slug, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+companyColumns,
		c.Name, c.Slug, c.Status, c.CreatedAt, c.UpdatedAt)

	created, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return created, nil
}

// FindByID は ID で会社を取得します。
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)

	found, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return found, nil
}

// FindBySlug はスラッグで会社を取得します。
func (r *CompanyRepository) FindBySlug(ctx context.Context, slug string) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE slug = $1`, slug)

	found, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return found, nil
}

// List は会社の一覧を取得します。
func (r *CompanyRepository) List(ctx context.Context, filter company.ListCompaniesFilter) ([]*company.Company, string, error) {
	if filter.Limit <= 0 {
		return nil, "", paging.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", paging.ErrInvalidPageToken
	}

	var where whereBuilder
	if filter.Status != nil {
		where.add("status = ?", *filter.Status)
	}

	query := `
        SELECT ` + companyColumns + `
          FROM companies` + where.clause() + `
         ORDER BY created_at DESC, id DESC` + where.page(filter.Limit, filter.Offset)

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, where.args...)
	if err != nil {
		return nil, "", translateCompanyPgError(err)
	}
	defer rows.Close()

	var companies []*company.Company
	for rows.Next() {
		found, err := scanCompany(rows)
		if err != nil {
			return nil, "", translateCompanyPgError(err)
		}
		companies = append(companies, found)
	}
	if err := rows.Err(); err != nil {
		return nil, "", translateCompanyPgError(err)
	}

	companies, next := paging.Trim(companies, filter.Limit, filter.Offset)
	return companies, next, nil
}

func scanCompany(row pgx.Row) (*company.Company, error) {
	var (
		c                    company.Company
		status               string
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, company.ErrCompanyNotFound
		}
		return nil, err
	}
	c.Status = company.Status(status)
	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt
	return &c, nil
}

func translateCompanyPgError(err error) error {
	if code, _ := pgErrorCode(err); code == uniqueViolationCode {
		return company.ErrSlugAlreadyExists
	}
	return err
}
