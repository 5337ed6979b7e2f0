package discovery

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/grandcat/zeroconf"
)

// DefaultBrowseTimeout is the default timeout for browse operations.
const DefaultBrowseTimeout = 10 * time.Second

// DefaultLookupTimeout is the default timeout for lookup operations.
const DefaultLookupTimeout = 5 * time.Second

// ResolvedEndpoint contains information about a discovered UMP endpoint.
type ResolvedEndpoint struct {
	// InstanceName is the DNS-SD instance name (the endpoint name).
	InstanceName string

	// HostName is the target host name.
	HostName string

	// Port is the endpoint's UDP port.
	Port int

	// IPs contains the resolved IP addresses, sorted by preference.
	IPs []net.IP

	// TXT holds the parsed endpoint TXT records.
	TXT EndpointTXT
}

// PreferredIP returns the most preferred IP address (first in the sorted list).
// Returns nil if no addresses are available.
func (r *ResolvedEndpoint) PreferredIP() net.IP {
	if len(r.IPs) > 0 {
		return r.IPs[0]
	}
	return nil
}

// UDPAddr returns the preferred UDP address of the endpoint.
// Returns nil if no addresses are available.
func (r *ResolvedEndpoint) UDPAddr() *net.UDPAddr {
	ip := r.PreferredIP()
	if ip == nil {
		return nil
	}
	return &net.UDPAddr{IP: ip, Port: r.Port}
}

// MDNSResolver is the interface for mDNS service resolution.
// This allows for dependency injection in tests.
type MDNSResolver interface {
	// Browse browses for services of the given type.
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

	// Lookup looks up a specific service instance.
	Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// zeroconfResolver is the production implementation using grandcat/zeroconf.
type zeroconfResolver struct {
	resolver *zeroconf.Resolver
}

func newZeroconfResolver() (*zeroconfResolver, error) {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}
	return &zeroconfResolver{resolver: r}, nil
}

func (z *zeroconfResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return z.resolver.Browse(ctx, service, domain, entries)
}

func (z *zeroconfResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return z.resolver.Lookup(ctx, instance, service, domain, entries)
}

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	// MDNSResolver is the underlying mDNS resolver implementation.
	// If nil, the default zeroconf resolver is used.
	MDNSResolver MDNSResolver

	// BrowseTimeout is the timeout for browse operations.
	// If zero, DefaultBrowseTimeout is used.
	BrowseTimeout time.Duration

	// LookupTimeout is the timeout for lookup operations.
	// If zero, DefaultLookupTimeout is used.
	LookupTimeout time.Duration
}

// Resolver discovers UMP endpoints via DNS-SD.
type Resolver struct {
	config   ResolverConfig
	resolver MDNSResolver
}

// NewResolver creates a new Resolver with the given configuration.
func NewResolver(config ResolverConfig) (*Resolver, error) {
	resolver := config.MDNSResolver
	if resolver == nil {
		zr, err := newZeroconfResolver()
		if err != nil {
			return nil, err
		}
		resolver = zr
	}

	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = DefaultBrowseTimeout
	}
	if config.LookupTimeout == 0 {
		config.LookupTimeout = DefaultLookupTimeout
	}

	return &Resolver{
		config:   config,
		resolver: resolver,
	}, nil
}

// Browse discovers UMP endpoints on the network.
// Returns a channel that receives discovered endpoints until the context is
// cancelled or the browse timeout expires.
//
// The underlying resolver owns the entries channel: Browse on it returns
// immediately, entries arrive from its background goroutines, and it closes
// the channel once the context expires. The wrapper must never close
// entries itself.
func (r *Resolver) Browse(ctx context.Context) (<-chan ResolvedEndpoint, error) {
	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, r.config.BrowseTimeout)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	if err := r.resolver.Browse(ctx, ServiceMIDI2, DefaultDomain, entries); err != nil {
		cancel()
		return nil, err
	}

	results := make(chan ResolvedEndpoint)
	go func() {
		defer cancel()
		defer close(results)

		// Drain until the resolver closes entries so late answers are
		// consumed rather than left blocking its send loop.
		for entry := range entries {
			if entry == nil {
				continue
			}
			ep := entryToResolvedEndpoint(entry)
			select {
			case results <- ep:
			case <-ctx.Done():
			}
		}
	}()

	return results, nil
}

// Lookup looks up a specific endpoint by its instance name.
func (r *Resolver) Lookup(ctx context.Context, instanceName string) (*ResolvedEndpoint, error) {
	// Apply lookup timeout if context doesn't have a deadline
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.LookupTimeout)
		defer cancel()
	}

	// As with Browse, the resolver owns entries and closes it at expiry.
	entries := make(chan *zeroconf.ServiceEntry)
	if err := r.resolver.Lookup(ctx, instanceName, ServiceMIDI2, DefaultDomain, entries); err != nil {
		return nil, err
	}

	for entry := range entries {
		if entry == nil {
			continue
		}
		ep := entryToResolvedEndpoint(entry)
		// Drain remaining answers so the resolver's send loop is never
		// left blocked on an abandoned channel.
		go func() {
			for range entries {
			}
		}()
		return &ep, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, ErrTimeout
	}
	return nil, ErrServiceNotFound
}

// entryToResolvedEndpoint converts a zeroconf.ServiceEntry to ResolvedEndpoint.
func entryToResolvedEndpoint(entry *zeroconf.ServiceEntry) ResolvedEndpoint {
	var allIPs []net.IP
	allIPs = append(allIPs, entry.AddrIPv6...)
	allIPs = append(allIPs, entry.AddrIPv4...)

	// Sort by preference (IPv6 global > IPv6 ULA > IPv6 link-local > IPv4)
	sortedIPs := SortIPsByPreference(allIPs)

	txt := ParseEndpointTXT(ParseTXT(entry.Text))
	if txt.EndpointName == "" {
		txt.EndpointName = entry.Instance
	}

	return ResolvedEndpoint{
		InstanceName: entry.Instance,
		HostName:     entry.HostName,
		Port:         entry.Port,
		IPs:          sortedIPs,
		TXT:          txt,
	}
}
