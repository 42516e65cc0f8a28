package tasks

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	listQ     = `(?s)^SELECT\s+id,\s*owner_identity_key,\s*text,\s*completed,\s*created_at,\s*completed_at\s+FROM\s+tasks\s+WHERE\s+owner_identity_key\s*=\s*\$1\s+ORDER\s+BY\s+id\s*$`
	insertQ   = `(?s)^INSERT\s+INTO\s+tasks\s*\(owner_identity_key,\s*text,\s*completed,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*FALSE,\s*now\(\)\)\s*RETURNING\s+id,.*completed_at\s*$`
	completeQ = `(?s)^UPDATE\s+tasks\s+SET\s+completed\s*=\s*TRUE,\s*completed_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+owner_identity_key\s*=\s*\$2\s*$`
	ownerA    = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

var taskCols = []string{"id", "owner_identity_key", "text", "completed", "created_at", "completed_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestListByOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	done := created.Add(time.Hour)

	rows := sqlmock.NewRows(taskCols).
		AddRow(int64(1), ownerA, "buy milk", false, created, nil).
		AddRow(int64(2), ownerA, "walk dog", true, created, done)
	mock.ExpectQuery(listQ).WithArgs(ownerA).WillReturnRows(rows)

	got, err := repo.ListByOwner(context.Background(), ownerA)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "buy milk", got[0].Text)
	assert.False(t, got[0].Completed)
	assert.Nil(t, got[0].CompletedAt)

	assert.Equal(t, int64(2), got[1].ID)
	assert.True(t, got[1].Completed)
	require.NotNil(t, got[1].CompletedAt)
	assert.True(t, got[1].CompletedAt.Equal(done))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwner_EmptyIsNotNil(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WithArgs(ownerA).WillReturnRows(sqlmock.NewRows(taskCols))

	got, err := repo.ListByOwner(context.Background(), ownerA)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListByOwner_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WithArgs(ownerA).WillReturnError(errors.New("db down"))

	_, err := repo.ListByOwner(context.Background(), ownerA)
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestListByOwner_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(taskCols).
		AddRow(int64(1), ownerA, "x", false, time.Now(), nil).
		RowError(0, errors.New("broken row"))
	mock.ExpectQuery(listQ).WithArgs(ownerA).WillReturnRows(rows)

	_, err := repo.ListByOwner(context.Background(), ownerA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken row")
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(taskCols).AddRow(int64(9), ownerA, "write tests", false, now, nil)
	mock.ExpectQuery(insertQ).WithArgs(ownerA, "write tests").WillReturnRows(rows)

	got, err := repo.Create(context.Background(), ownerA, "write tests")
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.ID)
	assert.Equal(t, ownerA, got.OwnerIdentityKey)
	assert.False(t, got.Completed)
	assert.Nil(t, got.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_EmptyTextIsPassedThrough(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(taskCols).AddRow(int64(1), ownerA, "", false, time.Now(), nil)
	mock.ExpectQuery(insertQ).WithArgs(ownerA, "").WillReturnRows(rows)

	got, err := repo.Create(context.Background(), ownerA, "")
	require.NoError(t, err)
	assert.Equal(t, "", got.Text)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WithArgs(ownerA, "t").WillReturnError(errors.New("boom"))

	_, err := repo.Create(context.Background(), ownerA, "t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: boom")
}

func TestComplete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
	}{
		{"own task", 1},
		{"foreign or unknown task", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectExec(completeQ).
				WithArgs(int64(5), ownerA).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			n, err := repo.Complete(context.Background(), ownerA, 5)
			require.NoError(t, err)
			assert.Equal(t, tt.affected, n)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestComplete_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(completeQ).
		WithArgs(int64(5), ownerA).
		WillReturnError(errors.New("timeout"))

	_, err := repo.Complete(context.Background(), ownerA, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: timeout")
}
