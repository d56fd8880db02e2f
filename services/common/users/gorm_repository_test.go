package users

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestGormRepository_CreateAssignsID(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewGormRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	u := &User{Username: "ann", Email: "ann@example.com", Password: "hash"}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Len(t, u.ID, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepository_FindByIDNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewGormRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "users" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepository_FindByEmail(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewGormRepository(gormDB)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "email", "password", "is_admin", "created_at", "updated_at"}).
		AddRow("u-1", "ann", "ann@example.com", "hash", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WillReturnRows(rows)

	u, err := repo.FindByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", u.Password)
	assert.True(t, u.IsAdmin)
}

func TestGormRepository_FindByIDsEmpty(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	found, err := NewGormRepository(gormDB).FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGormRepository_DeleteMissing(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewGormRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "users"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), ErrNotFound)
}

func TestGormRepository_Update(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := NewGormRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), &User{ID: "u-1", Username: "ann", Email: "ann@example.com"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
