package postgres

import (
	"context"
	"database/sql"
	"time"

	"airq/internal/model"
	"airq/internal/repository"
)

// ReadingPostgres is a PostgreSQL implementation of repository.ReadingRepository.
type ReadingPostgres struct {
	db *sql.DB
}

// NewReadingPostgres creates a new ReadingPostgres repository.
func NewReadingPostgres(db *sql.DB) *ReadingPostgres {
	return &ReadingPostgres{db: db}
}

var _ repository.ReadingRepository = (*ReadingPostgres)(nil)

// Insert stores a reading, dropping duplicates of (device_id, ts) at the
// database level. Returns whether a new row was stored.
func (r *ReadingPostgres) Insert(ctx context.Context, rd *model.Reading) (bool, error) {
	const q = `
		INSERT INTO readings (device_id, ts, pm25, pm10, tvoc)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id, ts) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, q, rd.DeviceID, rd.TS, rd.PM25, rd.PM10, rd.TVOC)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Latest fetches the most recent stored reading for a device.
func (r *ReadingPostgres) Latest(ctx context.Context, deviceID string) (*model.Reading, error) {
	const q = `
		SELECT device_id, ts, pm25, pm10, tvoc
		FROM readings
		WHERE device_id = $1
		ORDER BY ts DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q, deviceID)

	var rd model.Reading
	if err := row.Scan(&rd.DeviceID, &rd.TS, &rd.PM25, &rd.PM10, &rd.TVOC); err != nil {
		return nil, err
	}
	return &rd, nil
}

// Range returns readings within [from, to], newest first, with a total count.
func (r *ReadingPostgres) Range(ctx context.Context, deviceID string, from, to time.Time, pq repository.PageQuery) (*repository.PageResult[model.Reading], error) {
	// Zero bounds become NULL so the predicate collapses on that side.
	fromArg := nullableTime(from)
	toArg := nullableTime(to)

	const qCount = `
		SELECT COUNT(*)
		FROM readings
		WHERE device_id = $1
		  AND ($2::timestamptz IS NULL OR ts >= $2)
		  AND ($3::timestamptz IS NULL OR ts <= $3)
	`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, deviceID, fromArg, toArg).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT device_id, ts, pm25, pm10, tvoc
		FROM readings
		WHERE device_id = $1
		  AND ($2::timestamptz IS NULL OR ts >= $2)
		  AND ($3::timestamptz IS NULL OR ts <= $3)
		ORDER BY ts DESC, id DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.db.QueryContext(ctx, qList, deviceID, fromArg, toArg, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Reading, 0)
	for rows.Next() {
		var rd model.Reading
		if err := rows.Scan(&rd.DeviceID, &rd.TS, &rd.PM25, &rd.PM10, &rd.TVOC); err != nil {
			return nil, err
		}
		items = append(items, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Reading]{Items: items, Total: total}, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
