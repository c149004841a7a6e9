package model

import "time"

// Reading is one normalized sample reported by a device.
//
// Metric fields are pointers because a device only reports the metrics its
// hardware carries: a Laser Egg has particulate sensors but no TVOC module,
// a Sensedge reports PM2.5 and TVOC. Absent metrics marshal as null.
type Reading struct {
	DeviceID string    `json:"device_id"`
	TS       time.Time `json:"ts"`

	// units: µg/m³
	PM25 *float64 `json:"pm25"`
	// units: µg/m³
	PM10 *float64 `json:"pm10"`
	// units: ppb
	TVOC *float64 `json:"tvoc"`
}
