package content

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() {
		sqlxDB.Close()
	}

	return repo, mock, closer
}

func contentRow(id int64, deeplink string, tokensRequired int64, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "description", "file_id", "file_type", "tokens_required", "deeplink", "views", "is_active", "created_by", "created_at"}).
		AddRow(id, "Secret clip", nil, "file-abc", "video", tokensRequired, deeplink, 0, active, 99, time.Now())
}

func TestCreateContent(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	adminID := int64(99)
	mock.ExpectQuery("INSERT INTO content").
		WithArgs("Secret clip", nil, "file-abc", "video", int64(30), "abc123def456", &adminID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "views", "is_active", "created_at"}).
			AddRow(1, 0, true, time.Now()))

	item := &Content{
		Title:          "Secret clip",
		FileID:         "file-abc",
		FileType:       "video",
		TokensRequired: 30,
		Deeplink:       "abc123def456",
		CreatedBy:      &adminID,
	}
	err := repo.Create(context.Background(), item)
	require.NoError(t, err)
	require.Equal(t, int64(1), item.ID)
	require.True(t, item.IsActive)
}

func TestFindByDeeplink(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectQuery("SELECT (.+) FROM content").
		WithArgs("abc123def456").
		WillReturnRows(contentRow(1, "abc123def456", 30, true))

	item, err := repo.FindByDeeplink(context.Background(), "abc123def456")
	require.NoError(t, err)
	require.Equal(t, int64(30), item.TokensRequired)

	mock.ExpectQuery("SELECT (.+) FROM content").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.FindByDeeplink(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIncrementViews(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE content SET views = views + 1 WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.IncrementViews(context.Background(), 1)
	require.NoError(t, err)
}

func TestListContent(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	rows := sqlmock.NewRows([]string{"id", "title", "description", "file_id", "file_type", "tokens_required", "deeplink", "views", "is_active", "created_by", "created_at"}).
		AddRow(2, "Newer", nil, "file-2", "photo", 10, "dl2", 5, true, 99, time.Now()).
		AddRow(1, "Older", nil, "file-1", "video", 30, "dl1", 12, true, 99, time.Now().Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM content").
		WithArgs(50, 0).
		WillReturnRows(rows)

	items, err := repo.List(context.Background(), 50, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Newer", items[0].Title)
}

func TestListContent_DefaultLimit(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	// limit <= 0 falls back to the default page size instead of LIMIT 0
	mock.ExpectQuery("SELECT (.+) FROM content").
		WithArgs(50, 0).
		WillReturnRows(contentRow(1, "dl1", 30, true))

	items, err := repo.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
