package openfmb

import (
	"time"

	"github.com/google/uuid"
)

// Measurement is a single telemetry reading reported by a device. Data holds
// the named sensor values (voltage, frequency, ...) as received from the API.
type Measurement struct {
	DeviceID  uuid.UUID      `json:"uuid"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// DeviceList enumerates the device UUIDs known to the service.
type DeviceList struct {
	Count       int         `json:"count"`
	DeviceUUIDs []uuid.UUID `json:"device_uuids"`
}

// HistoricalQuery bounds a historical data request. A zero Start or End
// leaves that side of the range open.
type HistoricalQuery struct {
	Limit int       // maximum records returned; 0 means the default of 100
	Start time.Time // inclusive lower bound
	End   time.Time // inclusive upper bound
}
