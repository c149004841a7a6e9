package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"airq/internal/model"
	"airq/internal/repository"
	repoMocks "airq/internal/repository/mocks"
	"airq/internal/service"
	serviceMocks "airq/internal/service/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func newTestPoller(t *testing.T) (*Poller, *serviceMocks.MockDeviceService, *repoMocks.MockDeviceRepository, *Metrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	svc := new(serviceMocks.MockDeviceService)
	devices := new(repoMocks.MockDeviceRepository)
	return New(svc, devices, metrics, 10*time.Millisecond, time.UTC), svc, devices, metrics
}

func TestPollOnce(t *testing.T) {
	ctx := context.Background()

	egg := model.Device{ID: "egg-id", Kind: model.KindLaserEgg}
	sensedge := model.Device{ID: "se-id", Kind: model.KindSensedge}

	p, svc, devices, metrics := newTestPoller(t)

	devices.On("List", ctx, repository.PageQuery{Limit: 100, Offset: 0}).
		Return(&repository.PageResult[model.Device]{
			Items: []model.Device{egg, sensedge},
			Total: 2,
		}, nil)

	svc.On("Ingest", ctx, egg).
		Return(&model.Reading{DeviceID: egg.ID, TS: time.Now().UTC(), PM25: f64(12.5)}, true, nil)
	// The Sensedge has not uploaded anything yet
	svc.On("Ingest", ctx, sensedge).Return(nil, false, service.ErrNoData)

	p.PollOnce(ctx)

	assert.Equal(t, 12.5, testutil.ToFloat64(metrics.pm25.WithLabelValues(egg.ID, egg.Kind)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.polls.WithLabelValues("stored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.polls.WithLabelValues("no_data")))

	svc.AssertExpectations(t)
	devices.AssertExpectations(t)
}

func TestPollOnceFailedDeviceDropsGauges(t *testing.T) {
	ctx := context.Background()
	egg := model.Device{ID: "egg-id", Kind: model.KindLaserEgg}

	p, svc, devices, metrics := newTestPoller(t)

	devices.On("List", ctx, mock.Anything).
		Return(&repository.PageResult[model.Device]{Items: []model.Device{egg}, Total: 1}, nil).Once()
	svc.On("Ingest", ctx, egg).
		Return(&model.Reading{DeviceID: egg.ID, TS: time.Now().UTC(), PM25: f64(30)}, true, nil).Once()

	p.PollOnce(ctx)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.pm25))

	// Next cycle the upstream API fails; the gauge must vanish rather than
	// flat-line on the stale value.
	devices.On("List", ctx, mock.Anything).
		Return(&repository.PageResult[model.Device]{Items: []model.Device{egg}, Total: 1}, nil).Once()
	svc.On("Ingest", ctx, egg).Return(nil, false, errors.New("upstream down")).Once()

	p.PollOnce(ctx)
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.pm25))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.polls.WithLabelValues("error")))
}

func TestPollOnceListFailure(t *testing.T) {
	ctx := context.Background()
	p, svc, devices, _ := newTestPoller(t)

	devices.On("List", ctx, mock.Anything).Return(nil, errors.New("db down"))

	// Must not panic and must not call Ingest
	p.PollOnce(ctx)
	svc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestPollOncePagination(t *testing.T) {
	ctx := context.Background()
	p, svc, devices, _ := newTestPoller(t)

	first := make([]model.Device, 100)
	for i := range first {
		first[i] = model.Device{ID: "dev", Kind: model.KindLaserEgg}
	}
	devices.On("List", ctx, repository.PageQuery{Limit: 100, Offset: 0}).
		Return(&repository.PageResult[model.Device]{Items: first, Total: 101}, nil).Once()
	devices.On("List", ctx, repository.PageQuery{Limit: 100, Offset: 100}).
		Return(&repository.PageResult[model.Device]{Items: []model.Device{{ID: "last", Kind: model.KindSensedge}}, Total: 101}, nil).Once()

	svc.On("Ingest", ctx, mock.Anything).Return(nil, false, service.ErrNoData)

	p.PollOnce(ctx)
	devices.AssertExpectations(t)
	svc.AssertNumberOfCalls(t, "Ingest", 101)
}

func TestRunStopsOnCancel(t *testing.T) {
	p, svc, devices, _ := newTestPoller(t)

	devices.On("List", mock.Anything, mock.Anything).
		Return(&repository.PageResult[model.Device]{Items: nil, Total: 0}, nil)
	_ = svc // no devices, no ingest calls

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on context cancel")
	}
}
