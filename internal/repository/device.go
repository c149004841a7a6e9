package repository

import (
	"context"

	"airq/internal/model"
)

// DeviceRepository defines data access for registered devices using SQL
// queries only. No business logic here — strictly persistence operations.
type DeviceRepository interface {
	// Create inserts a new device row and returns the stored record
	// (may include values set by the DB, e.g. created_at default).
	Create(ctx context.Context, dev *model.Device) (*model.Device, error)

	// FindByID returns a device by its ID.
	FindByID(ctx context.Context, id string) (*model.Device, error)

	// List returns a paginated list of devices and the total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Device], error)

	// Delete removes a device by ID. Readings cascade at the schema level.
	// Returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
