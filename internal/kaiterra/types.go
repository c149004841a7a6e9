package kaiterra

import "time"

// LaserEgg is the /lasereggs/{id} resource. InfoAQI is nil until the
// device uploads its first sample.
type LaserEgg struct {
	ID      string       `json:"id"`
	InfoAQI *AQISnapshot `json:"info.aqi"`
}

// AQISnapshot is the most recent sample a Laser Egg uploaded.
type AQISnapshot struct {
	TS   time.Time `json:"ts"`
	Data AQIData   `json:"data"`
}

// AQIData carries the particulate readings. Fields the device did not
// report are nil.
type AQIData struct {
	// units: µg/m³
	PM25 *float64 `json:"pm25"`
	// units: µg/m³
	PM10 *float64 `json:"pm10"`
}

// Sensedge is the /sensedges/{id} resource. Latest is nil until the
// device uploads its first sample.
type Sensedge struct {
	ID     string          `json:"id"`
	Latest *SensedgeLatest `json:"latest"`
}

// SensedgeLatest keys carry the sensing-module prefix assigned by the
// hardware: km100 is the particulate module, km102 the TVOC module.
type SensedgeLatest struct {
	TS time.Time `json:"ts"`
	// units: µg/m³
	PM25 *float64 `json:"km100.rpm25c"`
	// units: ppb
	TVOC *float64 `json:"km102.rtvoc (ppb)"`
}
