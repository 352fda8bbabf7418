package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
)

func newRepoWithMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	return NewRepository(cfg, db), mock
}

var userColumnNames = []string{
	"id", "name", "email", "phone", "address", "role", "password_hash",
	"first_niche", "second_niche", "third_niche", "cover_letter",
	"resume_public_id", "resume_url", "created_at", "version",
}

func TestGetUserByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	createdAt := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(userColumnNames).AddRow(
		int64(7), "张伟", "a@x.com", "13800000000", "北京", "Job Seeker", "hash",
		"后端开发", "运维", "测试", "你好",
		"Job_Seekers_Resume/2025/03/abc.pdf", "http://s3/job-portal/Job_Seekers_Resume/2025/03/abc.pdf", createdAt, int32(3),
	)
	mock.ExpectQuery(`(?s)^SELECT.+FROM users WHERE email = \$1$`).
		WithArgs("a@x.com").
		WillReturnRows(rows)

	user, err := repo.GetUserByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)

	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, domain.RoleJobSeeker, user.Role)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.True(t, user.Niches.Complete())
	require.NotNil(t, user.Resume)
	assert.Equal(t, "Job_Seekers_Resume/2025/03/abc.pdf", user.Resume.PublicID)
	assert.Equal(t, int32(3), user.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByID_WithoutResume(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows(userColumnNames).AddRow(
		int64(1), "李强", "b@x.com", "139", "上海", "Employer", "hash",
		"", "", "", "",
		nil, nil, time.Now(), int32(1),
	)
	mock.ExpectQuery(`(?s)^SELECT.+FROM users WHERE id = \$1$`).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	user, err := repo.GetUserByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, user.Resume)
	assert.Equal(t, domain.RoleEmployer, user.Role)
}

func TestGetUserByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByID(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestCreateUser_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	createdAt := time.Now().UTC()

	mock.ExpectQuery(`(?s)INSERT INTO users.+RETURNING id, created_at, version`).
		WithArgs(
			"王芳", "c@x.com", "137", "广州", sqlmock.AnyArg(), "hash",
			"", "", "", "",
			nil, nil,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "version"}).AddRow(int64(11), createdAt, int32(1)))

	user := &domain.User{
		Name:         "王芳",
		Email:        "c@x.com",
		Phone:        "137",
		Address:      "广州",
		Role:         domain.RoleEmployer,
		PasswordHash: "hash",
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))

	assert.Equal(t, int64(11), user.ID)
	assert.Equal(t, createdAt, user.CreatedAt)
	assert.Equal(t, int32(1), user.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})

	err := repo.CreateUser(context.Background(), &domain.User{Email: "dup@x.com", Role: domain.RoleEmployer})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestCreateUser_OtherConstraint(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	pgErr := &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "users_role_check"}
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(pgErr)

	err := repo.CreateUser(context.Background(), &domain.User{Email: "x@x.com", Role: "Admin"})
	assert.False(t, errors.Is(err, domain.ErrDuplicateEmail))

	var got *pgconn.PgError
	assert.ErrorAs(t, err, &got)
}

func TestUpdateUser_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	user := &domain.User{
		ID:      5,
		Name:    "赵敏",
		Email:   "d@x.com",
		Role:    domain.RoleJobSeeker,
		Resume:  &domain.Resume{PublicID: "k", URL: "u"},
		Version: 2,
	}

	mock.ExpectQuery(`(?s)UPDATE users.+WHERE id = \$12 AND version = \$13`).
		WithArgs(
			"赵敏", "d@x.com", "", "", "",
			"", "", "", "",
			"k", "u", int64(5), int32(2),
		).
		WillReturnRows(sqlmock.NewRows([]string{"role", "created_at", "version"}).AddRow("Job Seeker", time.Now(), int32(3)))

	require.NoError(t, repo.UpdateUser(context.Background(), user))
	assert.Equal(t, int32(3), user.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUser_EditConflict(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`UPDATE users`).WillReturnError(sql.ErrNoRows)

	err := repo.UpdateUser(context.Background(), &domain.User{ID: 5, Version: 1})
	assert.ErrorIs(t, err, domain.ErrEditConflict)
}

func TestUpdateUser_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`UPDATE users`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})

	err := repo.UpdateUser(context.Background(), &domain.User{ID: 5, Version: 1})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestGetAllUsers(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows(userColumnNames).
		AddRow(int64(1), "a", "a@x.com", "", "", "Employer", "h", "", "", "", "", nil, nil, time.Now(), int32(1)).
		AddRow(int64(2), "b", "b@x.com", "", "", "Job Seeker", "h", "x", "y", "z", "", nil, nil, time.Now(), int32(1))
	mock.ExpectQuery(`(?s)FROM users ORDER BY id`).WillReturnRows(rows)

	users, err := repo.GetAllUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "b@x.com", users[1].Email)
}
