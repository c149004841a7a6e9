package mocks

import (
	"context"
	"time"

	"airq/internal/model"
	"airq/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockReadingRepository struct {
	mock.Mock
}

func (m *MockReadingRepository) Insert(ctx context.Context, rd *model.Reading) (bool, error) {
	args := m.Called(ctx, rd)
	return args.Bool(0), args.Error(1)
}

func (m *MockReadingRepository) Latest(ctx context.Context, deviceID string) (*model.Reading, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reading), args.Error(1)
}

func (m *MockReadingRepository) Range(ctx context.Context, deviceID string, from, to time.Time, pq repository.PageQuery) (*repository.PageResult[model.Reading], error) {
	args := m.Called(ctx, deviceID, from, to, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Reading]), args.Error(1)
}
