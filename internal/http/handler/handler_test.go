package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"airq/internal/model"
	"airq/internal/service"
	serviceMocks "airq/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testDeviceID = "00000000-0001-0001-0000-00007e57c0de"

func newApp(svc service.DeviceService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	db, _, _ := sqlmock.New()
	RegisterRoutes(app, db, svc)
	return app
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := newApp(new(serviceMocks.MockDeviceService))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterDevice(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("Register", mock.Anything, testDeviceID, "laseregg", "office").
			Return(&model.Device{ID: testDeviceID, Kind: "laseregg", Name: "office"}, nil)

		app := newApp(svc)

		body := bytes.NewBufferString(`{"id": "` + testDeviceID + `", "kind": "laseregg", "name": "office"}`)
		req := httptest.NewRequest(http.MethodPost, "/devices", body)
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var dev model.Device
		json.NewDecoder(resp.Body).Decode(&dev)
		assert.Equal(t, testDeviceID, dev.ID)
		svc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		app := newApp(new(serviceMocks.MockDeviceService))

		req := httptest.NewRequest(http.MethodPost, "/devices", bytes.NewBufferString(`{`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("duplicate", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("Register", mock.Anything, testDeviceID, "laseregg", "").
			Return(nil, service.ErrAlreadyRegistered)

		app := newApp(svc)

		body := bytes.NewBufferString(`{"id": "` + testDeviceID + `", "kind": "laseregg"}`)
		req := httptest.NewRequest(http.MethodPost, "/devices", body)
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "ALREADY_REGISTERED", payload.Error.Code)
	})

	t.Run("upstream unreachable", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("Register", mock.Anything, testDeviceID, "sensedge", "").
			Return(nil, service.ErrDeviceUnreachable)

		app := newApp(svc)

		body := bytes.NewBufferString(`{"id": "` + testDeviceID + `", "kind": "sensedge"}`)
		req := httptest.NewRequest(http.MethodPost, "/devices", body)
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}

func TestListDevices(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("List", mock.Anything, 5, 10).
			Return(&service.DeviceListResult{Items: []model.Device{{ID: testDeviceID}}, Total: 1}, nil)

		app := newApp(svc)

		req := httptest.NewRequest(http.MethodGet, "/devices?limit=5&offset=10", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var res service.DeviceListResult
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, 1, res.Total)
		svc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		app := newApp(new(serviceMocks.MockDeviceService))

		req := httptest.NewRequest(http.MethodGet, "/devices?limit=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetDevice(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("Get", mock.Anything, testDeviceID).
			Return(&model.Device{ID: testDeviceID, Kind: "laseregg"}, nil)

		app := newApp(svc)

		req := httptest.NewRequest(http.MethodGet, "/devices/"+testDeviceID, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		app := newApp(new(serviceMocks.MockDeviceService))

		req := httptest.NewRequest(http.MethodGet, "/devices/not-a-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "INVALID_ID", payload.Error.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("Get", mock.Anything, testDeviceID).Return(nil, service.ErrNotFound)

		app := newApp(svc)

		req := httptest.NewRequest(http.MethodGet, "/devices/"+testDeviceID, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteDevice(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("Delete", mock.Anything, testDeviceID).Return(nil)

		app := newApp(svc)

		req := httptest.NewRequest(http.MethodDelete, "/devices/"+testDeviceID, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("Delete", mock.Anything, testDeviceID).Return(service.ErrNotFound)

		app := newApp(svc)

		req := httptest.NewRequest(http.MethodDelete, "/devices/"+testDeviceID, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestLatestReading(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		pm25 := 12.5
		svc := new(serviceMocks.MockDeviceService)
		svc.On("Latest", mock.Anything, testDeviceID).
			Return(&model.Reading{DeviceID: testDeviceID, TS: time.Now().UTC(), PM25: &pm25}, nil)

		app := newApp(svc)

		req := httptest.NewRequest(http.MethodGet, "/devices/"+testDeviceID+"/latest", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var rd model.Reading
		json.NewDecoder(resp.Body).Decode(&rd)
		require.NotNil(t, rd.PM25)
		assert.Equal(t, 12.5, *rd.PM25)
	})

	t.Run("no data yet", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("Latest", mock.Anything, testDeviceID).Return(nil, service.ErrNoData)

		app := newApp(svc)

		req := httptest.NewRequest(http.MethodGet, "/devices/"+testDeviceID+"/latest", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "NO_DATA", payload.Error.Code)
	})
}

func TestListReadings(t *testing.T) {
	from := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	t.Run("bounded range", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("History", mock.Anything, testDeviceID, from, to, 20, 0).
			Return(&service.ReadingListResult{Items: []model.Reading{{DeviceID: testDeviceID}}, Total: 1}, nil)

		app := newApp(svc)

		req := httptest.NewRequest(http.MethodGet,
			"/devices/"+testDeviceID+"/readings?from=2026-08-27T00:00:00Z&to=2026-08-28T00:00:00Z", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("absent bounds pass zero times", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("History", mock.Anything, testDeviceID, time.Time{}, time.Time{}, 20, 0).
			Return(&service.ReadingListResult{Items: []model.Reading{}, Total: 0}, nil)

		app := newApp(svc)

		req := httptest.NewRequest(http.MethodGet, "/devices/"+testDeviceID+"/readings", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("malformed from", func(t *testing.T) {
		app := newApp(new(serviceMocks.MockDeviceService))

		req := httptest.NewRequest(http.MethodGet, "/devices/"+testDeviceID+"/readings?from=yesterday", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "INVALID_FROM", payload.Error.Code)
	})
}

func TestSnapshotURL(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("SnapshotURL", mock.Anything, testDeviceID, time.Duration(0)).
			Return("https://minio.local/presigned", nil)

		app := newApp(svc)

		req := httptest.NewRequest(http.MethodGet, "/devices/"+testDeviceID+"/snapshot", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "https://minio.local/presigned", body["url"])
	})

	t.Run("unknown device", func(t *testing.T) {
		svc := new(serviceMocks.MockDeviceService)
		svc.On("SnapshotURL", mock.Anything, testDeviceID, time.Duration(0)).
			Return("", service.ErrNotFound)

		app := newApp(svc)

		req := httptest.NewRequest(http.MethodGet, "/devices/"+testDeviceID+"/snapshot", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
