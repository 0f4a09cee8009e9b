package repository

import (
	"context"
	"database/sql"

	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/work-order-manager/backend/internal/store"
)

const userColumns = `id, company_id, full_name, username, email, password_hash, level, title, is_active, created_at, version`

type userRepository struct {
	r *Repository
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var title sql.NullString

	dst := []any{&user.ID, &user.CompanyID, &user.FullName, &user.Username, &user.Email, &user.PasswordHash, &user.Level, &title, &user.IsActive, &user.CreatedAt, &user.Version}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if title.Valid {
		user.Title = &title.String
	}

	return user, nil
}

func (u *userRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	ctx, cancel := u.r.withTimeout(ctx)
	defer cancel()

	rows, err := u.r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (u *userRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	ctx, cancel := u.r.withTimeout(ctx)
	defer cancel()

	exists := false
	if err := u.r.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

func (u *userRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := u.r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (company_id, full_name, username, email, password_hash, level, title, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`

	args := []any{user.CompanyID, user.FullName, user.Username, user.Email, user.PasswordHash, user.Level, user.Title, user.IsActive}
	if err := u.r.db.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.Version); err != nil {
		return translateError(err)
	}

	return nil
}

func (u *userRepository) Get(ctx context.Context, id int64) (*domain.User, error) {
	ctx, cancel := u.r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(u.r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err)
	}

	return user, nil
}

func (u *userRepository) FindByUsername(ctx context.Context, username string) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 ORDER BY id`
	return u.queryUsers(ctx, query, username)
}

func (u *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return u.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (u *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return u.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (u *userRepository) ExistsByUsernameInCompany(ctx context.Context, username string, companyID int64) (bool, error) {
	return u.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND company_id = $2)`, username, companyID)
}

func (u *userRepository) ExistsByEmailInCompany(ctx context.Context, email string, companyID int64) (bool, error) {
	return u.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND company_id = $2)`, email, companyID)
}

func (u *userRepository) ExistsInCompany(ctx context.Context, companyID int64) (bool, error) {
	return u.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE company_id = $1)`, companyID)
}

func (u *userRepository) List(ctx context.Context, page domain.Page) ([]*domain.User, error) {
	limit, offset := limitOffset(page.Limit, page.Offset)
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	return u.queryUsers(ctx, query, limit, offset)
}

func (u *userRepository) ListByCompany(ctx context.Context, companyID int64, page domain.Page) ([]*domain.User, error) {
	limit, offset := limitOffset(page.Limit, page.Offset)
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = $1 ORDER BY id LIMIT $2 OFFSET $3`
	return u.queryUsers(ctx, query, companyID, limit, offset)
}

func (u *userRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, cancel := u.r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE users
		SET
			password_hash = $1,
			level = $2,
			title = $3,
			is_active = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`

	args := []any{user.PasswordHash, user.Level, user.Title, user.IsActive, user.ID, user.Version}
	if err := u.r.db.QueryRowContext(ctx, query, args...).Scan(&user.Version); err != nil {
		if err = translateError(err); err == store.ErrNotFound {
			return store.ErrStaleVersion
		}
		return err
	}

	return nil
}
