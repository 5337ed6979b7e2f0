package ci

import "fmt"

// DeviceInfo describes a discovered remote endpoint. The zero value of
// every descriptive field is acceptable: a discovery reply carries only
// numeric identity, and names arrive later (if at all) via the DeviceInfo
// property.
type DeviceInfo struct {
	// MUID identifies the endpoint for the lifetime of its session.
	MUID uint32

	Manufacturer string
	Family       string
	Model        string
	Version      string
	SerialNumber string

	// Features is the supported-category bitmap from the discovery reply.
	Features uint8

	// MaxSysExSize is the largest system-exclusive payload the endpoint
	// accepts.
	MaxSysExSize uint32

	// EndpointReady is true once an endpoint reply has been observed.
	// Property requests are gated on it.
	EndpointReady bool
}

// DisplayName returns a short human-readable label.
func (d DeviceInfo) DisplayName() string {
	switch {
	case d.Model != "" && d.Manufacturer != "":
		return fmt.Sprintf("%s (%s)", d.Model, d.Manufacturer)
	case d.Model != "":
		return d.Model
	default:
		return fmt.Sprintf("MUID 0x%08X", d.MUID)
	}
}
