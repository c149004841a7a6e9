package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"airq/internal/model"
	"airq/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReadingRepo(t *testing.T) (*ReadingPostgres, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return NewReadingPostgres(db), mock, func() { db.Close() }
}

func f64(v float64) *float64 { return &v }

func TestReadingPostgres_Insert(t *testing.T) {
	repo, mock, closeDB := newReadingRepo(t)
	defer closeDB()
	ctx := context.Background()

	ts := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
	rd := &model.Reading{
		DeviceID: "test-id",
		TS:       ts,
		PM25:     f64(12.5),
	}

	t.Run("stored", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO readings").
			WithArgs("test-id", ts, rd.PM25, nil, nil).
			WillReturnResult(sqlmock.NewResult(1, 1))

		stored, err := repo.Insert(ctx, rd)

		assert.NoError(t, err)
		assert.True(t, stored)
	})

	t.Run("duplicate sample is dropped", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO readings").
			WithArgs("test-id", ts, rd.PM25, nil, nil).
			WillReturnResult(sqlmock.NewResult(0, 0))

		stored, err := repo.Insert(ctx, rd)

		assert.NoError(t, err)
		assert.False(t, stored)
	})

	t.Run("exec error", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO readings").
			WillReturnError(errors.New("db down"))

		stored, err := repo.Insert(ctx, rd)

		assert.Error(t, err)
		assert.False(t, stored)
	})
}

func TestReadingPostgres_Latest(t *testing.T) {
	repo, mock, closeDB := newReadingRepo(t)
	defer closeDB()
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		ts := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"device_id", "ts", "pm25", "pm10", "tvoc"}).
			AddRow("test-id", ts, 12.5, nil, 125.0)

		mock.ExpectQuery("SELECT (.+) FROM readings WHERE device_id = (.+) ORDER BY ts DESC").
			WithArgs("test-id").
			WillReturnRows(rows)

		rd, err := repo.Latest(ctx, "test-id")

		require.NoError(t, err)
		assert.Equal(t, ts, rd.TS)
		require.NotNil(t, rd.PM25)
		assert.Equal(t, 12.5, *rd.PM25)
		assert.Nil(t, rd.PM10)
		require.NotNil(t, rd.TVOC)
		assert.Equal(t, 125.0, *rd.TVOC)
	})

	t.Run("no readings", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM readings WHERE device_id = (.+) ORDER BY ts DESC").
			WithArgs("empty-id").
			WillReturnError(sql.ErrNoRows)

		rd, err := repo.Latest(ctx, "empty-id")

		assert.True(t, errors.Is(err, sql.ErrNoRows))
		assert.Nil(t, rd)
	})
}

func TestReadingPostgres_Range(t *testing.T) {
	repo, mock, closeDB := newReadingRepo(t)
	defer closeDB()
	ctx := context.Background()

	from := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	t.Run("bounded", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM readings").
			WithArgs("test-id", from, to).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		rows := sqlmock.NewRows([]string{"device_id", "ts", "pm25", "pm10", "tvoc"}).
			AddRow("test-id", from.Add(time.Hour), 10.0, 18.0, nil)

		mock.ExpectQuery("SELECT (.+) FROM readings").
			WithArgs("test-id", from, to, 10, 0).
			WillReturnRows(rows)

		res, err := repo.Range(ctx, "test-id", from, to, repository.PageQuery{Limit: 10, Offset: 0})

		require.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
	})

	t.Run("unbounded passes NULLs", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM readings").
			WithArgs("test-id", nil, nil).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		mock.ExpectQuery("SELECT (.+) FROM readings").
			WithArgs("test-id", nil, nil, 10, 0).
			WillReturnRows(sqlmock.NewRows([]string{"device_id", "ts", "pm25", "pm10", "tvoc"}))

		res, err := repo.Range(ctx, "test-id", time.Time{}, time.Time{}, repository.PageQuery{Limit: 10, Offset: 0})

		require.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.Empty(t, res.Items)
	})

	t.Run("count error", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\)\\s+FROM readings").
			WillReturnError(errors.New("db down"))

		res, err := repo.Range(ctx, "test-id", from, to, repository.PageQuery{Limit: 10, Offset: 0})

		assert.Error(t, err)
		assert.Nil(t, res)
	})
}
