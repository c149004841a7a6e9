// Package poller drives the background ingest loop: on every tick it walks
// the registered devices, pulls their latest sample through the service
// layer, and mirrors the readings into Prometheus gauges.
package poller

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"airq/internal/model"
	"airq/internal/repository"
	"airq/internal/service"
)

// Metrics are the per-device gauges and poll counters the loop maintains.
type Metrics struct {
	pm25 *prometheus.GaugeVec
	pm10 *prometheus.GaugeVec
	tvoc *prometheus.GaugeVec

	polls *prometheus.CounterVec
}

func newGauge(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		[]string{"device_id", "kind"},
	)
}

// NewMetrics creates and registers the poller's metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		pm25: newGauge("air_pm25", "Fine particulate matter PM2.5 (units: µg/m³)"),
		pm10: newGauge("air_pm10", "Coarse particulate matter PM10 (units: µg/m³)"),
		tvoc: newGauge("air_tvoc", "Total volatile organic compounds (units: ppb)"),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airq_polls_total",
				Help: "Total device polls by result.",
			},
			[]string{"result"},
		),
	}

	for _, c := range []prometheus.Collector{m.pm25, m.pm10, m.tvoc, m.polls} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(dev model.Device, rd *model.Reading) {
	if rd.PM25 != nil {
		m.pm25.WithLabelValues(dev.ID, dev.Kind).Set(*rd.PM25)
	}
	if rd.PM10 != nil {
		m.pm10.WithLabelValues(dev.ID, dev.Kind).Set(*rd.PM10)
	}
	if rd.TVOC != nil {
		m.tvoc.WithLabelValues(dev.ID, dev.Kind).Set(*rd.TVOC)
	}
}

// forget drops a device's gauges so a failed poll leaves missing data
// points instead of a stale flat line.
func (m *Metrics) forget(dev model.Device) {
	labels := prometheus.Labels{"device_id": dev.ID, "kind": dev.Kind}
	m.pm25.Delete(labels)
	m.pm10.Delete(labels)
	m.tvoc.Delete(labels)
}

// Poller periodically ingests readings for every registered device.
type Poller struct {
	svc      service.DeviceService
	devices  repository.DeviceRepository
	metrics  *Metrics
	interval time.Duration
	loc      *time.Location
}

// New constructs a Poller. interval must be positive.
func New(svc service.DeviceService, devices repository.DeviceRepository, metrics *Metrics, interval time.Duration, loc *time.Location) *Poller {
	return &Poller{svc: svc, devices: devices, metrics: metrics, interval: interval, loc: loc}
}

// Run blocks until ctx is cancelled, polling every interval. The first
// cycle runs immediately so a fresh deployment has data before the first
// tick.
func (p *Poller) Run(ctx context.Context) {
	p.logJSON(map[string]any{
		"component":   "poller",
		"event":       "poller_started",
		"interval_ms": p.interval.Milliseconds(),
	})

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logJSON(map[string]any{
				"component": "poller",
				"event":     "poller_stopped",
			})
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce runs a single ingest cycle over all registered devices.
func (p *Poller) PollOnce(ctx context.Context) {
	// Page through every device; the loop tolerates per-device failures.
	const pageSize = 100
	for offset := 0; ; offset += pageSize {
		page, err := p.devices.List(ctx, repository.PageQuery{Limit: pageSize, Offset: offset})
		if err != nil {
			p.logJSON(map[string]any{
				"component":     "poller",
				"event":         "poll_list_failed",
				"status":        "error",
				"error_message": err.Error(),
			})
			return
		}
		for _, dev := range page.Items {
			p.pollDevice(ctx, dev)
		}
		if offset+len(page.Items) >= page.Total || len(page.Items) == 0 {
			return
		}
	}
}

func (p *Poller) pollDevice(ctx context.Context, dev model.Device) {
	start := time.Now()
	rd, stored, err := p.svc.Ingest(ctx, dev)
	if err != nil {
		// A silent device is expected; the row was deleted mid-cycle is too.
		result := "error"
		switch {
		case errors.Is(err, service.ErrNoData):
			result = "no_data"
		case errors.Is(err, sql.ErrNoRows):
			result = "gone"
		}
		p.polls(result)
		if result == "error" {
			p.metrics.forget(dev)
			p.logJSON(map[string]any{
				"component":     "poller",
				"event":         "poll_device_failed",
				"status":        "error",
				"device_id":     dev.ID,
				"kind":          dev.Kind,
				"error_message": err.Error(),
				"duration_ms":   time.Since(start).Milliseconds(),
			})
		}
		return
	}

	p.metrics.observe(dev, rd)
	if stored {
		p.polls("stored")
	} else {
		p.polls("unchanged")
	}
	p.logJSON(map[string]any{
		"component":   "poller",
		"event":       "poll_device",
		"status":      "success",
		"device_id":   dev.ID,
		"kind":        dev.Kind,
		"stored":      stored,
		"sample_ts":   rd.TS.Format(time.RFC3339),
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func (p *Poller) polls(result string) {
	p.metrics.polls.WithLabelValues(result).Inc()
}

func (p *Poller) logJSON(data map[string]any) {
	data["ts"] = time.Now().In(p.loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal poller log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
