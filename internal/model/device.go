package model

import "time"

// Device kinds as used by the Kaiterra REST v1 API resource paths
// (/lasereggs/{id}, /sensedges/{id}).
const (
	KindLaserEgg = "laseregg"
	KindSensedge = "sensedge"
)

// Device is a registered air-quality sensor.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, poller) without coupling to persistence.
type Device struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidKind reports whether kind names a supported device type.
func ValidKind(kind string) bool {
	return kind == KindLaserEgg || kind == KindSensedge
}
