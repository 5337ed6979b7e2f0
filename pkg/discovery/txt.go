// Package discovery publishes and resolves UMP endpoints over DNS-SD.
//
// Endpoints advertise the _midi2._udp service with TXT records describing
// the endpoint name and product instance, so that capability-inquiry
// clients can find peers on the local network without manual
// configuration.
package discovery

import (
	"strings"
)

// ServiceMIDI2 is the DNS-SD service type for UMP endpoints over UDP.
const ServiceMIDI2 = "_midi2._udp"

// DefaultDomain is the default DNS-SD domain.
const DefaultDomain = "local."

// TXT record keys advertised by UMP endpoints.
const (
	// TXTKeyEndpointName is the human-readable UMP endpoint name.
	TXTKeyEndpointName = "UMPEndpointName"

	// TXTKeyProductInstanceID uniquely identifies a physical or logical
	// product instance, stable across restarts.
	TXTKeyProductInstanceID = "PIID"
)

// MaxEndpointNameLength is the maximum length of the advertised endpoint
// name in bytes.
const MaxEndpointNameLength = 98

// EndpointTXT holds the TXT records advertised for a UMP endpoint.
type EndpointTXT struct {
	// EndpointName is the human-readable endpoint name (required).
	EndpointName string

	// ProductInstanceID identifies the product instance (optional).
	ProductInstanceID string
}

// Validate checks the TXT record fields.
func (e *EndpointTXT) Validate() error {
	if e.EndpointName == "" || len(e.EndpointName) > MaxEndpointNameLength {
		return ErrInvalidEndpointName
	}
	return nil
}

// Encode converts the TXT record to DNS-SD format strings.
func (e *EndpointTXT) Encode() []string {
	txt := []string{TXTKeyEndpointName + "=" + e.EndpointName}
	if e.ProductInstanceID != "" {
		txt = append(txt, TXTKeyProductInstanceID+"="+e.ProductInstanceID)
	}
	return txt
}

// ParseEndpointTXT extracts endpoint fields from parsed TXT records.
func ParseEndpointTXT(txt map[string]string) EndpointTXT {
	return EndpointTXT{
		EndpointName:      txt[TXTKeyEndpointName],
		ProductInstanceID: txt[TXTKeyProductInstanceID],
	}
}

// ParseTXT parses raw DNS-SD TXT strings into a key-value map.
// Entries without '=' are stored with an empty value. Later duplicates
// are ignored.
func ParseTXT(records []string) map[string]string {
	m := make(map[string]string, len(records))
	for _, rec := range records {
		if rec == "" {
			continue
		}
		key, value, _ := strings.Cut(rec, "=")
		if key == "" {
			continue
		}
		if _, exists := m[key]; !exists {
			m[key] = value
		}
	}
	return m
}
