package mocks

import (
	"context"
	"time"

	"airq/internal/model"
	"airq/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDeviceService struct {
	mock.Mock
}

func (m *MockDeviceService) Register(ctx context.Context, id, kind, name string) (*model.Device, error) {
	args := m.Called(ctx, id, kind, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *MockDeviceService) List(ctx context.Context, limit, offset int) (*service.DeviceListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeviceListResult), args.Error(1)
}

func (m *MockDeviceService) Get(ctx context.Context, id string) (*model.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *MockDeviceService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDeviceService) Latest(ctx context.Context, id string) (*model.Reading, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reading), args.Error(1)
}

func (m *MockDeviceService) History(ctx context.Context, id string, from, to time.Time, limit, offset int) (*service.ReadingListResult, error) {
	args := m.Called(ctx, id, from, to, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReadingListResult), args.Error(1)
}

func (m *MockDeviceService) Ingest(ctx context.Context, dev model.Device) (*model.Reading, bool, error) {
	args := m.Called(ctx, dev)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Reading), args.Bool(1), args.Error(2)
}

func (m *MockDeviceService) SnapshotURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, id, expiry)
	return args.String(0), args.Error(1)
}
