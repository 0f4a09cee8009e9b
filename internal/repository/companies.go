package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/store"
)

type companyRepository struct {
	r *Repository
}

func (c *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	ctx, cancel := c.r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO companies (name, enrollment_code)
		VALUES ($1, $2)
		RETURNING id, created_at, version
	`

	dst := []any{&company.ID, &company.CreatedAt, &company.Version}
	if err := c.r.db.QueryRowContext(ctx, query, company.Name, company.EnrollmentCode).Scan(dst...); err != nil {
		return translateError(err)
	}

	return nil
}

func (c *companyRepository) Get(ctx context.Context, id int64) (*domain.Company, error) {
	ctx, cancel := c.r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT name, enrollment_code, created_at, version
		FROM companies WHERE id = $1
	`

	company := &domain.Company{
		ID: id,
	}

	dst := []any{&company.Name, &company.EnrollmentCode, &company.CreatedAt, &company.Version}
	if err := c.r.db.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, translateError(err)
	}

	return company, nil
}

func (c *companyRepository) GetByEnrollmentCode(ctx context.Context, code string) (*domain.Company, error) {
	ctx, cancel := c.r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, created_at, version
		FROM companies WHERE enrollment_code = $1
	`

	company := &domain.Company{
		EnrollmentCode: code,
	}

	dst := []any{&company.ID, &company.Name, &company.CreatedAt, &company.Version}
	if err := c.r.db.QueryRowContext(ctx, query, code).Scan(dst...); err != nil {
		return nil, translateError(err)
	}

	return company, nil
}

func (c *companyRepository) ExistsByEnrollmentCode(ctx context.Context, code string) (bool, error) {
	ctx, cancel := c.r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM companies WHERE enrollment_code = $1)
	`

	exists := false
	if err := c.r.db.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

func (c *companyRepository) List(ctx context.Context, page domain.Page) ([]*domain.Company, error) {
	ctx, cancel := c.r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, enrollment_code, created_at, version
		FROM companies
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	limit, offset := limitOffset(page.Limit, page.Offset)
	rows, err := c.r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]*domain.Company, 0)
	for rows.Next() {
		company := &domain.Company{}
		dst := []any{&company.ID, &company.Name, &company.EnrollmentCode, &company.CreatedAt, &company.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return companies, nil
}

func (c *companyRepository) Update(ctx context.Context, company *domain.Company) error {
	ctx, cancel := c.r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE companies
		SET
			name = $1,
			version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING enrollment_code, created_at, version
	`

	args := []any{company.Name, company.ID, company.Version}
	dst := []any{&company.EnrollmentCode, &company.CreatedAt, &company.Version}
	if err := c.r.db.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		if err = translateError(err); err == store.ErrNotFound {
			// 记录存在但版本号不一致
			return store.ErrStaleVersion
		}
		return err
	}

	return nil
}

func (c *companyRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := c.r.withTimeout(ctx)
	defer cancel()

	query := `
		DELETE FROM companies WHERE id = $1
	`

	result, err := c.r.db.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return nil
}
