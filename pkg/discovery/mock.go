package discovery

import (
	"context"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
)

// MockMDNSResolver provides a mock mDNS resolver for testing without real
// network I/O. It allows registering services and simulating discovery
// responses.
type MockMDNSResolver struct {
	mu       sync.RWMutex
	services map[string][]*zeroconf.ServiceEntry
}

// NewMockMDNSResolver creates a new mock resolver.
func NewMockMDNSResolver() *MockMDNSResolver {
	return &MockMDNSResolver{
		services: make(map[string][]*zeroconf.ServiceEntry),
	}
}

// RegisterService registers a service that will be returned by Browse/Lookup.
func (m *MockMDNSResolver) RegisterService(service string, entry *zeroconf.ServiceEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[service] = append(m.services[service], entry)
}

// ClearServices removes all registered services.
func (m *MockMDNSResolver) ClearServices() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = make(map[string][]*zeroconf.ServiceEntry)
}

// Browse implements MDNSResolver with the same channel contract as
// grandcat/zeroconf: it returns immediately, delivers entries from a
// background goroutine, and closes the entries channel itself once the
// context expires. Callers must not close the channel.
func (m *MockMDNSResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	m.mu.RLock()
	svcEntries := make([]*zeroconf.ServiceEntry, len(m.services[service]))
	copy(svcEntries, m.services[service])
	m.mu.RUnlock()

	go func() {
		defer close(entries)
		for _, entry := range svcEntries {
			select {
			case entries <- entry:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()

	return nil
}

// Lookup implements MDNSResolver with the same channel contract as Browse.
func (m *MockMDNSResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	m.mu.RLock()
	svcEntries := make([]*zeroconf.ServiceEntry, len(m.services[service]))
	copy(svcEntries, m.services[service])
	m.mu.RUnlock()

	go func() {
		defer close(entries)
		for _, entry := range svcEntries {
			if entry.Instance != instance {
				continue
			}
			select {
			case entries <- entry:
			case <-ctx.Done():
			}
			return
		}
		<-ctx.Done()
	}()

	return nil
}

// MockEndpointService creates a mock UMP endpoint service entry for testing.
func MockEndpointService(name string, port int, ip net.IP, productInstanceID string) *zeroconf.ServiceEntry {
	txt := EndpointTXT{
		EndpointName:      name,
		ProductInstanceID: productInstanceID,
	}
	return &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: name,
			Service:  ServiceMIDI2,
			Domain:   DefaultDomain,
		},
		HostName: name + ".local.",
		Port:     port,
		AddrIPv4: []net.IP{ip},
		Text:     txt.Encode(),
	}
}

// MockMDNSServer is an MDNSServer that records shutdown calls.
type MockMDNSServer struct {
	mu       sync.Mutex
	shutdown bool
}

// Shutdown implements MDNSServer.
func (s *MockMDNSServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
}

// IsShutdown returns true if Shutdown was called.
func (s *MockMDNSServer) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// MockMDNSServerFactory records registrations and returns mock servers.
type MockMDNSServerFactory struct {
	mu            sync.Mutex
	registrations []MockRegistration
	err           error
}

// MockRegistration captures the arguments of a Register call.
type MockRegistration struct {
	Instance string
	Service  string
	Domain   string
	Port     int
	TXT      []string
	Server   *MockMDNSServer
}

// NewMockMDNSServerFactory creates a new mock server factory.
func NewMockMDNSServerFactory() *MockMDNSServerFactory {
	return &MockMDNSServerFactory{}
}

// FailWith makes subsequent Register calls return err.
func (f *MockMDNSServerFactory) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Register implements MDNSServerFactory.
func (f *MockMDNSServerFactory) Register(instance, service, domain string, port int, txt []string, _ []net.Interface) (MDNSServer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	server := &MockMDNSServer{}
	f.registrations = append(f.registrations, MockRegistration{
		Instance: instance,
		Service:  service,
		Domain:   domain,
		Port:     port,
		TXT:      txt,
		Server:   server,
	})
	return server, nil
}

// Registrations returns a copy of all recorded registrations.
func (f *MockMDNSServerFactory) Registrations() []MockRegistration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MockRegistration(nil), f.registrations...)
}
