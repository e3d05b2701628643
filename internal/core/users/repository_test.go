package users

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "created_at", "updated_at", "username", "alias", "email", "phone", "password",
	"is_active", "is_superuser", "last_login", "dept_id",
}

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "postgres")), mock
}

func userRow(rows *sqlmock.Rows, id int64, username, email string) *sqlmock.Rows {
	now := time.Date(2025, 12, 28, 19, 37, 6, 0, time.UTC)
	return rows.AddRow(id, now, now, username, nil, email, nil, nil, true, false, nil, nil)
}

func TestRepositoryList(t *testing.T) {
	repo, mock := newMock(t)
	rows := sqlmock.NewRows(columns)
	userRow(rows, 1, "alice", "alice@example.com")
	userRow(rows, 2, "bob", "bob@example.com")
	mock.ExpectQuery(`SELECT .+ FROM "user"\s+ORDER BY id\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 0).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Username)
	assert.Nil(t, got[0].Alias)
	assert.True(t, got[1].IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCount(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "user"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGet(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM "user"\s+WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(userRow(sqlmock.NewRows(columns), 7, "carol", "carol@example.com"))
	mock.ExpectQuery(`SELECT .+ FROM "user"\s+WHERE id = \$1`).
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	u, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "carol@example.com", u.Email)

	_, err = repo.Get(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreate(t *testing.T) {
	repo, mock := newMock(t)
	hash := "$2a$10$hash"
	in := NewUser{Username: "dave", Email: "dave@example.com"}

	mock.ExpectQuery(`INSERT INTO "user" \(username, alias, email, phone, password, is_superuser, dept_id\)`).
		WithArgs("dave", nil, "dave@example.com", nil, &hash, false, nil).
		WillReturnRows(userRow(sqlmock.NewRows(columns), 3, "dave", "dave@example.com"))

	u, err := repo.Create(context.Background(), in, &hash)
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateDuplicate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO "user"`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), NewUser{Username: "dave", Email: "dave@example.com"}, nil)
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}
