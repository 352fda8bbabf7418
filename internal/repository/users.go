package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
)

const userColumns = `
	id, name, email, phone, address, role, password_hash,
	first_niche, second_niche, third_niche, cover_letter,
	resume_public_id, resume_url, created_at, version
`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	user := &domain.User{}
	var resumePublicID, resumeURL sql.NullString

	dst := []any{
		&user.ID, &user.Name, &user.Email, &user.Phone, &user.Address, &user.Role, &user.PasswordHash,
		&user.Niches.FirstNiche, &user.Niches.SecondNiche, &user.Niches.ThirdNiche, &user.CoverLetter,
		&resumePublicID, &resumeURL, &user.CreatedAt, &user.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if resumePublicID.Valid {
		user.Resume = &domain.Resume{PublicID: resumePublicID.String, URL: resumeURL.String}
	}

	return user, nil
}

func resumeColumns(resume *domain.Resume) (sql.NullString, sql.NullString) {
	if resume == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: resume.PublicID, Valid: true}, sql.NullString{String: resume.URL, Valid: true}
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT` + userColumns + `FROM users WHERE id = $1`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	user, err := scanUser(r.dbpool.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err)
	}

	return user, nil
}

// 邮箱区分大小写，精确匹配
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT` + userColumns + `FROM users WHERE email = $1`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	user, err := scanUser(r.dbpool.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, translateError(err)
	}

	return user, nil
}

// 邮箱唯一性最终由 users_email_key 约束保证
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (
			name, email, phone, address, role, password_hash,
			first_niche, second_niche, third_niche, cover_letter,
			resume_public_id, resume_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, version
	`

	resumePublicID, resumeURL := resumeColumns(user.Resume)
	args := []any{
		user.Name, user.Email, user.Phone, user.Address, user.Role, user.PasswordHash,
		user.Niches.FirstNiche, user.Niches.SecondNiche, user.Niches.ThirdNiche, user.CoverLetter,
		resumePublicID, resumeURL,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.Version); err != nil {
		return translateError(err)
	}

	return nil
}

// 角色一经创建不可修改，因此不在更新的字段中
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET
			name = $1,
			email = $2,
			phone = $3,
			address = $4,
			password_hash = $5,
			first_niche = $6,
			second_niche = $7,
			third_niche = $8,
			cover_letter = $9,
			resume_public_id = $10,
			resume_url = $11,
			version = version + 1
		WHERE id = $12 AND version = $13
		RETURNING role, created_at, version
	`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	resumePublicID, resumeURL := resumeColumns(user.Resume)
	args := []any{
		user.Name, user.Email, user.Phone, user.Address, user.PasswordHash,
		user.Niches.FirstNiche, user.Niches.SecondNiche, user.Niches.ThirdNiche, user.CoverLetter,
		resumePublicID, resumeURL, user.ID, user.Version,
	}
	dst := []any{&user.Role, &user.CreatedAt, &user.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		// 找不到对应版本的记录说明记录在此期间被修改过
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrEditConflict
		}
		return translateError(err)
	}

	return nil
}

func (r *Repository) GetAllUsers(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT` + userColumns + `FROM users ORDER BY id`

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
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
