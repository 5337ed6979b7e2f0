package discovery

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
)

// ManagerConfig holds configuration for the discovery Manager.
type ManagerConfig struct {
	// Port is the UDP port to advertise (default: 5673).
	Port int

	// Interfaces specifies which network interfaces to use.
	// If nil, all interfaces are used.
	Interfaces []net.Interface

	// BrowseTimeout is the default timeout for browse operations.
	// If zero, DefaultBrowseTimeout is used.
	BrowseTimeout time.Duration

	// LookupTimeout is the default timeout for lookup operations.
	// If zero, DefaultLookupTimeout is used.
	LookupTimeout time.Duration

	// ServerFactory is the factory for creating mDNS servers (for testing).
	ServerFactory MDNSServerFactory

	// MDNSResolver is the mDNS resolver implementation (for testing).
	MDNSResolver MDNSResolver

	// LoggerFactory for creating loggers.
	LoggerFactory logging.LoggerFactory
}

// Manager coordinates DNS-SD advertising and resolution for UMP endpoints.
type Manager struct {
	advertiser *Advertiser
	resolver   *Resolver

	mu     sync.RWMutex
	closed bool
}

// NewManager creates a new discovery Manager with the given configuration.
func NewManager(config ManagerConfig) (*Manager, error) {
	advertiser, err := NewAdvertiser(AdvertiserConfig{
		Port:          config.Port,
		Interfaces:    config.Interfaces,
		ServerFactory: config.ServerFactory,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	resolver, err := NewResolver(ResolverConfig{
		MDNSResolver:  config.MDNSResolver,
		BrowseTimeout: config.BrowseTimeout,
		LookupTimeout: config.LookupTimeout,
	})
	if err != nil {
		return nil, err
	}

	return &Manager{
		advertiser: advertiser,
		resolver:   resolver,
	}, nil
}

// Announce begins advertising the local endpoint on the network.
func (m *Manager) Announce(txt EndpointTXT) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	m.mu.RUnlock()

	return m.advertiser.Start(txt)
}

// StopAnnouncing stops the active advertisement.
func (m *Manager) StopAnnouncing() error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	m.mu.RUnlock()

	return m.advertiser.Stop()
}

// IsAnnouncing returns true if the endpoint is currently being advertised.
func (m *Manager) IsAnnouncing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false
	}

	return m.advertiser.IsAdvertising()
}

// Browse discovers UMP endpoints on the network.
func (m *Manager) Browse(ctx context.Context) (<-chan ResolvedEndpoint, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, ErrClosed
	}
	m.mu.RUnlock()

	return m.resolver.Browse(ctx)
}

// Lookup looks up a specific endpoint by instance name.
func (m *Manager) Lookup(ctx context.Context, instanceName string) (*ResolvedEndpoint, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, ErrClosed
	}
	m.mu.RUnlock()

	return m.resolver.Lookup(ctx, instanceName)
}

// Advertiser returns the underlying Advertiser for advanced usage.
func (m *Manager) Advertiser() *Advertiser {
	return m.advertiser
}

// Resolver returns the underlying Resolver for advanced usage.
func (m *Manager) Resolver() *Resolver {
	return m.resolver
}

// Close stops advertising and releases resources.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.closed = true

	if m.advertiser != nil {
		m.advertiser.Close()
	}

	return nil
}
