package entries

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/dmitrijs2005/cryptocloud/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "owner_id", "name", "kind", "parent_id", "size", "locator", "created_at", "version"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

func fileEntry(now time.Time) *models.Entry {
	return &models.Entry{
		ID:        "e1",
		OwnerID:   "u1",
		Name:      "a.txt",
		Kind:      models.KindFile,
		ParentID:  "f1",
		Size:      100,
		Locator:   "u1/tok/a.txt",
		CreatedAt: now,
		Version:   1,
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO entries \(id, owner_id, name, kind, parent_id, size, locator, created_at, version\)`).
		WithArgs("e1", "u1", "a.txt", "file", "f1", int64(100), "u1/tok/a.txt", now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), fileEntry(now)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolationIsInvalidReference(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO entries`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	err := repo.Create(context.Background(), fileEntry(time.Now()))
	assert.ErrorIs(t, err, common.ErrInvalidReference)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO entries`).WillReturnError(errors.New("db is down"))

	err := repo.Create(context.Background(), fileEntry(time.Now()))
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db is down`, err.Error())
}

func TestGetByID(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, owner_id, name, kind, parent_id, size, locator, created_at, version FROM entries WHERE id=\$1`).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("e1", "u1", "a.txt", "file", "f1", int64(100), "u1/tok/a.txt", now, int64(3)))

	e, err := repo.GetByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.KindFile, e.Kind)
	assert.Equal(t, uint64(100), e.Size)
	assert.Equal(t, int64(3), e.Version)
	assert.Equal(t, "f1", e.ParentID)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM entries WHERE id=\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByID_QueryError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM entries WHERE id=\$1`).WillReturnError(errors.New("boom"))

	_, err := repo.GetByID(context.Background(), "e1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateName(t *testing.T) {
	q := regexp.QuoteMeta(`UPDATE entries SET name=$1, version=version+1`)

	t.Run("success bumps version", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("b.txt", "e1", "u1", int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))

		e := &models.Entry{ID: "e1", OwnerID: "u1", Name: "b.txt", Version: 2}
		require.NoError(t, repo.UpdateName(context.Background(), e))
		assert.Equal(t, int64(3), e.Version)
	})

	t.Run("stale version", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))

		e := &models.Entry{ID: "e1", OwnerID: "u1", Name: "b.txt", Version: 1}
		assert.ErrorIs(t, repo.UpdateName(context.Background(), e), common.ErrVersionConflict)
		assert.Equal(t, int64(1), e.Version)
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))

		err := repo.UpdateName(context.Background(), &models.Entry{ID: "e1"})
		require.Error(t, err)
		assert.Regexp(t, `rows affected error: .*rows-err`, err.Error())
	})

	t.Run("more than one row", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 2))

		err := repo.UpdateName(context.Background(), &models.Entry{ID: "e1"})
		assert.EqualError(t, err, "unexpected rows affected: 2")
	})
}

func TestListChildren(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM entries WHERE owner_id=\$1 AND parent_id=\$2`).
		WithArgs("u1", "").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("f1", "u1", "docs", "folder", "", int64(0), "", now, int64(1)).
			AddRow("e1", "u1", "a.txt", "file", "", int64(5), "u1/t/a.txt", now, int64(1)))

	got, err := repo.ListChildren(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsFolder())
	assert.Equal(t, uint64(5), got[1].Size)
}

func TestListChildren_Errors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectQuery(`SELECT .* FROM entries`).WillReturnError(errors.New("db err"))

		_, err := repo.ListChildren(context.Background(), "u1", "")
		require.Error(t, err)
		assert.Regexp(t, `failed to select entries: .*db err`, err.Error())
	})

	t.Run("scan", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectQuery(`SELECT .* FROM entries`).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("f1", "u1", "docs", "folder", "", "not-a-number", "", time.Now(), int64(1)))

		_, err := repo.ListChildren(context.Background(), "u1", "")
		assert.Error(t, err)
	})

	t.Run("rows", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectQuery(`SELECT .* FROM entries`).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("f1", "u1", "docs", "folder", "", int64(0), "", time.Now(), int64(1)).
				RowError(0, errors.New("row-err")))

		_, err := repo.ListChildren(context.Background(), "u1", "")
		assert.EqualError(t, err, "row-err")
	})
}

func TestDelete(t *testing.T) {
	q := regexp.QuoteMeta(`DELETE FROM entries WHERE id=$1 AND owner_id=$2`)

	t.Run("success", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("e1", "u1").WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.Delete(context.Background(), "u1", "e1"))
	})

	t.Run("absent", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("e1", "u2").WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.Delete(context.Background(), "u2", "e1"), common.ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectExec(q).WillReturnError(errors.New("down"))
		err := repo.Delete(context.Background(), "u1", "e1")
		require.Error(t, err)
		assert.Regexp(t, `failed to delete entry: .*down`, err.Error())
	})
}

func TestSumFileSizes(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(size), 0)::BIGINT FROM entries WHERE owner_id=$1 AND kind='file'`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(60)))

	total, err := repo.SumFileSizes(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, uint64(60), total)

	mock.ExpectQuery(`SELECT COALESCE`).WillReturnError(errors.New("x"))
	_, err = repo.SumFileSizes(context.Background(), "u1")
	assert.Error(t, err)
}
