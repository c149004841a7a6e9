package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"airq/internal/kaiterra"
	"airq/internal/model"
	"airq/internal/repository"
	"airq/internal/storage"
)

var (
	ErrIDRequired        = errors.New("device id is required")
	ErrInvalidID         = errors.New("device id must be a UUID")
	ErrUnknownKind       = errors.New("unknown device kind")
	ErrNotFound          = errors.New("device not found")
	ErrAlreadyRegistered = errors.New("device already registered")
	ErrDeviceUnreachable = errors.New("device not reachable through the upstream API")
	ErrNoData            = errors.New("no readings available yet")
)

// SensorAPI is the slice of the upstream client the service depends on.
// *kaiterra.Client satisfies it; tests substitute a mock.
type SensorAPI interface {
	LatestReading(ctx context.Context, dev model.Device) (*model.Reading, []byte, error)
}

// DeviceListResult is the service-level DTO for paginated devices.
type DeviceListResult struct {
	Items []model.Device `json:"data"`
	Total int            `json:"total"`
}

// ReadingListResult is the service-level DTO for paginated readings.
type ReadingListResult struct {
	Items []model.Reading `json:"data"`
	Total int             `json:"total"`
}

// DeviceService defines the use cases around devices and their readings.
type DeviceService interface {
	// Register validates the device, probes it once through the upstream
	// API, and stores it. A device that exists but has not uploaded yet
	// still registers fine.
	Register(ctx context.Context, id, kind, name string) (*model.Device, error)

	// List returns devices using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DeviceListResult, error)

	// Get returns a single device by its ID.
	Get(ctx context.Context, id string) (*model.Device, error)

	// Delete removes a device, its archived snapshot, and (via the schema)
	// its readings.
	Delete(ctx context.Context, id string) error

	// Latest returns the most recent stored reading for a device.
	Latest(ctx context.Context, id string) (*model.Reading, error)

	// History returns stored readings within [from, to]; zero bounds mean
	// unbounded on that side.
	History(ctx context.Context, id string, from, to time.Time, limit, offset int) (*ReadingListResult, error)

	// Ingest fetches the device's latest sample from the upstream API,
	// archives the raw payload, and stores the normalized reading. The
	// bool reports whether the sample was new.
	Ingest(ctx context.Context, dev model.Device) (*model.Reading, bool, error)

	// SnapshotURL returns a presigned download URL for the device's most
	// recently archived raw payload.
	SnapshotURL(ctx context.Context, id string, expiry time.Duration) (string, error)
}

// deviceService is a concrete implementation of DeviceService.
type deviceService struct {
	api      SensorAPI
	store    storage.Storage
	devices  repository.DeviceRepository
	readings repository.ReadingRepository
}

// NewDeviceService constructs a new DeviceService.
func NewDeviceService(api SensorAPI, store storage.Storage, devices repository.DeviceRepository, readings repository.ReadingRepository) DeviceService {
	return &deviceService{api: api, store: store, devices: devices, readings: readings}
}

func snapshotKey(deviceID string) string {
	return "snapshots/" + deviceID + "/latest.json"
}

func (s *deviceService) Register(ctx context.Context, id, kind, name string) (*model.Device, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}
	if !model.ValidKind(kind) {
		return nil, ErrUnknownKind
	}
	if name == "" {
		name = id
	}

	dev := model.Device{ID: id, Kind: kind, Name: name, CreatedAt: time.Now().UTC()}

	// Reject duplicates before touching the upstream API.
	if _, err := s.devices.FindByID(ctx, id); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Probe the upstream API once. A registered-but-silent device answers
	// with ErrNoData, which is fine; an unknown device does not answer.
	if _, _, err := s.api.LatestReading(ctx, dev); err != nil && !errors.Is(err, kaiterra.ErrNoData) {
		if kaiterra.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
		}
		return nil, fmt.Errorf("probe device: %w", err)
	}

	return s.devices.Create(ctx, &dev)
}

// List returns paginated devices without exposing repository types.
func (s *deviceService) List(ctx context.Context, limit, offset int) (*DeviceListResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.devices.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DeviceListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a device by ID.
func (s *deviceService) Get(ctx context.Context, id string) (*model.Device, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	dev, err := s.devices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return dev, nil
}

// Delete removes the archived snapshot, then the device row; readings
// cascade at the schema level.
func (s *deviceService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if _, err := s.devices.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	// Snapshot first; if this fails, keep the row so the object is not orphaned.
	if err := s.store.Delete(ctx, snapshotKey(id)); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return s.devices.Delete(ctx, id)
}

// Latest returns the most recent stored reading for a device.
func (s *deviceService) Latest(ctx context.Context, id string) (*model.Reading, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rd, err := s.readings.Latest(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoData
		}
		return nil, err
	}
	return rd, nil
}

// History returns stored readings in a time window, newest first.
func (s *deviceService) History(ctx context.Context, id string, from, to time.Time, limit, offset int) (*ReadingListResult, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.readings.Range(ctx, id, from, to, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &ReadingListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *deviceService) Ingest(ctx context.Context, dev model.Device) (*model.Reading, bool, error) {
	rd, raw, err := s.api.LatestReading(ctx, dev)
	if err != nil {
		if errors.Is(err, kaiterra.ErrNoData) {
			return nil, false, ErrNoData
		}
		return nil, false, fmt.Errorf("fetch latest reading: %w", err)
	}

	// Archive the raw payload before normalizing; the snapshot always
	// reflects the last successful fetch.
	_, err = s.store.Put(ctx, snapshotKey(dev.ID), bytes.NewReader(raw), storage.PutObjectOptions{
		Size:        int64(len(raw)),
		ContentType: "application/json",
		Metadata: map[string]string{
			"device-kind": dev.Kind,
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("archive snapshot: %w", err)
	}

	stored, err := s.readings.Insert(ctx, rd)
	if err != nil {
		return nil, false, fmt.Errorf("store reading: %w", err)
	}
	return rd, stored, nil
}

// SnapshotURL presigns a download link for the archived raw payload.
func (s *deviceService) SnapshotURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return s.store.PresignGet(ctx, snapshotKey(id), expiry)
}
