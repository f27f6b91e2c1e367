package user

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	return repo, mock, func() { sqlxDB.Close() }
}

func userRows(id int, role string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "role", "commission_rate", "stripe_account_id", "created_at"}).
		AddRow(id, "Jo", "jo@example.com", role, nil, nil, time.Now())
}

func TestFindByID(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, role, commission_rate, stripe_account_id, created_at FROM users WHERE id = $1")).
		WithArgs(1).
		WillReturnRows(userRows(1, "DOG_OWNER"))

	u, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, u.ID)
	require.Equal(t, RoleDogOwner, u.Role)
}

func TestFindByIDNotFound(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	mock.ExpectQuery("SELECT").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), 99)
	require.True(t, apperr.IsNotFound(err))
}

func TestSetCommissionOverride(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	rate := 15.0
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET commission_rate = $1 WHERE id = $2 AND role = 'FIELD_OWNER'")).
		WithArgs(&rate, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetCommissionOverride(context.Background(), 4, &rate))

	// non-owner id affects zero rows
	mock.ExpectExec("UPDATE users").
		WithArgs(nil, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetCommissionOverride(context.Background(), 5, nil)
	require.True(t, apperr.IsNotFound(err))
}

func TestListAdminIDs(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE role = 'ADMIN'")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	ids, err := repo.ListAdminIDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, ids)
}
