package repository

import (
	"context"
	"time"

	"airq/internal/model"
)

// ReadingRepository defines data access for normalized sensor readings.
type ReadingRepository interface {
	// Insert stores a reading. The upstream API keeps returning the same
	// latest sample until the device uploads again, so (device_id, ts) is
	// unique and duplicates are dropped at the database level. The bool
	// reports whether a new row was actually stored.
	Insert(ctx context.Context, rd *model.Reading) (bool, error)

	// Latest returns the most recent stored reading for a device.
	Latest(ctx context.Context, deviceID string) (*model.Reading, error)

	// Range returns readings for a device within [from, to], newest first,
	// with limit/offset pagination and a total count. Zero bounds mean
	// unbounded on that side.
	Range(ctx context.Context, deviceID string, from, to time.Time, pq PageQuery) (*PageResult[model.Reading], error)
}
