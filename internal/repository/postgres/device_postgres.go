package postgres

import (
	"context"
	"database/sql"

	"airq/internal/model"
	"airq/internal/repository"
)

// DevicePostgres is a PostgreSQL implementation of repository.DeviceRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DevicePostgres struct {
	db *sql.DB
}

// NewDevicePostgres creates a new DevicePostgres repository.
func NewDevicePostgres(db *sql.DB) *DevicePostgres {
	return &DevicePostgres{db: db}
}

var _ repository.DeviceRepository = (*DevicePostgres)(nil)

// Create inserts a new device row and returns the stored record.
func (r *DevicePostgres) Create(ctx context.Context, dev *model.Device) (*model.Device, error) {
	const q = `
		INSERT INTO devices (id, kind, name, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, kind, name, created_at
	`
	row := r.db.QueryRowContext(ctx, q, dev.ID, dev.Kind, dev.Name, dev.CreatedAt)

	var out model.Device
	if err := row.Scan(&out.ID, &out.Kind, &out.Name, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single device by its ID.
func (r *DevicePostgres) FindByID(ctx context.Context, id string) (*model.Device, error) {
	const q = `
		SELECT id, kind, name, created_at
		FROM devices
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)

	var d model.Device
	if err := row.Scan(&d.ID, &d.Kind, &d.Name, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns devices using LIMIT/OFFSET pagination and a total count.
func (r *DevicePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Device], error) {
	const qCount = `SELECT COUNT(*) FROM devices`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, kind, name, created_at
		FROM devices
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Device, 0)
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.ID, &d.Kind, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Device]{Items: items, Total: total}, nil
}

// Delete removes a device by ID. It does not return an error if the row
// does not exist; readings cascade via the foreign key.
func (r *DevicePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM devices WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}
