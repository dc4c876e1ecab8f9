// File: tigermeter/models/heartbeat.go
package models

// HeartbeatRequest carries a device's periodic telemetry report.
// Missing fields preserve the previously stored values.
type HeartbeatRequest struct {
	Battery         *int   `json:"battery,omitempty"`
	Rssi            *int   `json:"rssi,omitempty"`
	IP              string `json:"ip,omitempty"`
	FirmwareVersion string `json:"firmwareVersion,omitempty"`
	UptimeSeconds   *int   `json:"uptimeSeconds,omitempty"`
	DisplayHash     string `json:"displayHash,omitempty"`
}

// HeartbeatResponse is the server's answer to a heartbeat. Instruction
// and DisplayHash are present only on a display cache miss. When
// FactoryReset is set the handler sends the reset directive alone.
type HeartbeatResponse struct {
	OK                    bool           `json:"ok"`
	AutoUpdate            bool           `json:"autoUpdate"`
	DemoMode              bool           `json:"demoMode"`
	LatestFirmwareVersion int            `json:"latestFirmwareVersion"`
	FirmwareDownloadURL   string         `json:"firmwareDownloadUrl"`
	Instruction           map[string]any `json:"instruction,omitempty"`
	DisplayHash           string         `json:"displayHash,omitempty"`
	FactoryReset          bool           `json:"-"`
}

// SweepPayload is the payload for the expired-record sweep task.
type SweepPayload struct {
	RequestedAt int64 `json:"requestedAt"`
}
