// umpci-probe discovers UMP endpoints on the local network and walks them
// through capability inquiry: discovery, endpoint inquiry, and a
// ResourceList property request.
//
// Usage:
//
//	umpci-probe [options]
//
// Options:
//
//	-name    local endpoint name announced over mDNS (default: "umpci-probe")
//	-port    local UDP port (default: ephemeral)
//	-peer    peer address (host:port); skips mDNS discovery when set
//	-group   UMP group to send on (default: 0)
//	-timeout how long to browse and probe (default: 15s)
//	-v       verbose logging
//
// Example:
//
//	umpci-probe -peer 192.168.1.20:5673 -v
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/pion/logging"

	"github.com/umpkit/midici/pkg/ci"
	"github.com/umpkit/midici/pkg/discovery"
	"github.com/umpkit/midici/pkg/property"
	"github.com/umpkit/midici/pkg/transport"
	"github.com/umpkit/midici/pkg/ump"
)

type options struct {
	name    string
	port    int
	peer    string
	group   uint
	timeout time.Duration
	verbose bool
}

func parseFlags() options {
	o := options{}
	flag.StringVar(&o.name, "name", "umpci-probe", "local endpoint name announced over mDNS")
	flag.IntVar(&o.port, "port", 0, "local UDP port (0 = ephemeral)")
	flag.StringVar(&o.peer, "peer", "", "peer address (host:port); skips mDNS discovery when set")
	flag.UintVar(&o.group, "group", 0, "UMP group to send on (0-15)")
	flag.DurationVar(&o.timeout, "timeout", 15*time.Second, "how long to browse and probe")
	flag.BoolVar(&o.verbose, "v", false, "verbose logging")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()
	if opts.group > ump.MaxGroup {
		log.Fatalf("group must be 0-%d, got %d", ump.MaxGroup, opts.group)
	}

	loggerFactory := logging.NewDefaultLoggerFactory()
	if opts.verbose {
		loggerFactory.DefaultLogLevel = logging.LogLevelDebug
	}

	p, err := newProbe(opts, loggerFactory)
	if err != nil {
		log.Fatalf("failed to create probe: %v", err)
	}
	defer p.stop()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := p.run(ctx); err != nil {
		log.Fatalf("probe error: %v", err)
	}

	p.report()
}

// probe wires discovery, transport, and a capability-inquiry session into
// a one-shot network walker.
type probe struct {
	opts    options
	session *ci.Session
	udp     *transport.UDP
	disc    *discovery.Manager
	log     logging.LeveledLogger

	peerAddr net.Addr
	chunks   *chunkAssembler
	done     chan struct{}
}

func newProbe(opts options, loggerFactory logging.LoggerFactory) (*probe, error) {
	p := &probe{
		opts:   opts,
		log:    loggerFactory.NewLogger("probe"),
		chunks: newChunkAssembler(),
		done:   make(chan struct{}, 1),
	}

	udp, err := transport.NewUDP(transport.UDPConfig{
		ListenAddr:    fmt.Sprintf(":%d", opts.port),
		PacketHandler: p.handlePacket,
		LoggerFactory: loggerFactory,
	})
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}
	p.udp = udp

	session, err := ci.NewSession(ci.SessionConfig{
		Engine:        p,
		Transmit:      p.transmitGetProperty,
		LoggerFactory: loggerFactory,
		PropertiesChanged: func(muid uint32) {
			select {
			case p.done <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		udp.Stop()
		return nil, fmt.Errorf("create session: %w", err)
	}
	p.session = session

	disc, err := discovery.NewManager(discovery.ManagerConfig{
		Port:          localPort(udp.LocalAddr()),
		LoggerFactory: loggerFactory,
	})
	if err != nil {
		udp.Stop()
		return nil, fmt.Errorf("create discovery: %w", err)
	}
	p.disc = disc

	return p, nil
}

func (p *probe) run(ctx context.Context) error {
	if err := p.udp.Start(); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	p.log.Infof("listening on %s, MUID 0x%08X", p.udp.LocalAddr(), p.session.MUID())

	if err := p.disc.Announce(discovery.EndpointTXT{EndpointName: p.opts.name}); err != nil {
		// mDNS may be unavailable (e.g. no multicast); keep probing.
		p.log.Warnf("mDNS announce failed: %v", err)
	} else if ips, err := p.disc.Advertiser().Addresses(); err == nil && len(ips) > 0 {
		p.log.Infof("announced %q, reachable at %v", p.opts.name, ips)
	}

	addr, err := p.resolvePeer(ctx)
	if err != nil {
		return err
	}
	p.peerAddr = addr
	p.log.Infof("probing %v", addr)

	if err := p.sendDiscovery(); err != nil {
		return fmt.Errorf("send discovery: %w", err)
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		stats := p.session.ReassemblyStats()
		if stats.Assembled == 0 {
			return fmt.Errorf("no reply from %v", addr)
		}
		return nil
	}
}

// resolvePeer picks the probe target: the -peer flag when given,
// otherwise the first endpoint found by browsing _midi2._udp.
func (p *probe) resolvePeer(ctx context.Context) (net.Addr, error) {
	if p.opts.peer != "" {
		addr, err := net.ResolveUDPAddr("udp", p.opts.peer)
		if err != nil {
			return nil, fmt.Errorf("resolve peer %q: %w", p.opts.peer, err)
		}
		return addr, nil
	}

	p.log.Info("browsing for UMP endpoints...")
	results, err := p.disc.Browse(ctx)
	if err != nil {
		return nil, fmt.Errorf("browse: %w", err)
	}

	for ep := range results {
		if ep.InstanceName == p.opts.name {
			continue // our own advertisement
		}
		if addr := ep.UDPAddr(); addr != nil {
			p.log.Infof("found endpoint %q at %v", ep.TXT.EndpointName, addr)
			return addr, nil
		}
	}

	return nil, fmt.Errorf("no UMP endpoints found")
}

func (p *probe) stop() {
	p.disc.Close()
	p.udp.Stop()
}

func (p *probe) report() {
	devices := p.session.Devices()
	if len(devices) == 0 {
		fmt.Println("no devices discovered")
		return
	}

	for _, dev := range devices {
		fmt.Printf("device %s\n", dev.DisplayName())
		fmt.Printf("  endpoint ready: %v\n", dev.EndpointReady)

		body, ok, err := p.session.RequestProperty(dev.MUID, property.ResourceList)
		if err != nil || !ok {
			continue
		}
		fmt.Printf("  ResourceList: %s\n", body)
	}

	stats := p.session.ReassemblyStats()
	fmt.Fprintf(os.Stderr, "reassembled %d payloads (%d framing violations, %d malformed)\n",
		stats.Assembled, stats.FramingViolations, stats.Malformed)
}

// handlePacket feeds transport packets into the session.
func (p *probe) handlePacket(pkt ump.Packet, addr net.Addr) {
	if err := p.session.HandlePacket(pkt); err != nil {
		p.log.Warnf("packet from %v: %v", addr, err)
	}
}

// ProcessInput implements ci.Engine: it routes reconstructed
// capability-inquiry payloads by message category.
func (p *probe) ProcessInput(group uint8, payload []byte) error {
	subID, ok := ci.SubID2(payload)
	if !ok {
		return nil
	}
	src, _ := ci.SourceMUID(payload)

	switch subID {
	case ci.SubIDDiscoveryReply:
		info := parseDiscoveryReply(src, payload)
		if p.session.OnDiscoveryReply(info) {
			p.log.Infof("discovery reply from %s", info.DisplayName())
			return p.sendEndpointInquiry(src)
		}

	case ci.SubIDEndpointReply:
		if p.session.OnEndpointReply(src) {
			p.log.Infof("endpoint 0x%08X ready", src)
			_, _, err := p.session.RequestProperty(src, property.ResourceList)
			return err
		}

	case ci.SubIDGetPropertyReply:
		reply, err := parsePropertyReply(payload)
		if err != nil {
			return err
		}
		if res, body, done := p.chunks.add(reply); done {
			p.session.OnPropertyReply(src, res, body)
		}

	case ci.SubIDNAK:
		p.log.Warnf("NAK from 0x%08X", src)

	default:
		p.log.Debugf("group %d: unhandled sub-ID 0x%02X from 0x%08X", group, subID, src)
	}

	return nil
}

func (p *probe) sendDiscovery() error {
	msg := buildEnvelope(ci.SubIDDiscovery, p.session.MUID(), ci.BroadcastMUID)
	// Discovery body: manufacturer, family, model, revision, capability
	// category, max sysex size.
	msg = append(msg,
		0x7D, 0x00, 0x00, // educational/test manufacturer ID
		0x00, 0x00, // family
		0x00, 0x00, // model
		0x00, 0x00, 0x00, 0x00, // revision
		0x1C,                   // category bitmap: protocol+profile+property
		0x00, 0x20, 0x00, 0x00, // max sysex size, 7-bit LSB first
	)
	return p.udp.SendPayload(uint8(p.opts.group), msg, p.peerAddr)
}

func (p *probe) sendEndpointInquiry(muid uint32) error {
	msg := buildEnvelope(ci.SubIDEndpointInquiry, p.session.MUID(), muid)
	msg = append(msg, 0x00) // status: product instance ID
	return p.udp.SendPayload(uint8(p.opts.group), msg, p.peerAddr)
}

// transmitGetProperty satisfies property.Transmitter for the session.
func (p *probe) transmitGetProperty(muid uint32, res property.Resource) error {
	header := fmt.Sprintf(`{"resource":%q}`, res.Name())

	msg := buildEnvelope(ci.SubIDGetPropertyData, p.session.MUID(), muid)
	msg = append(msg, 0x01) // request ID
	msg = append(msg, encode14(len(header))...)
	msg = append(msg, header...)
	msg = append(msg, encode14(1)...) // total chunks
	msg = append(msg, encode14(1)...) // this chunk
	msg = append(msg, encode14(0)...) // no property data in a get

	return p.udp.SendPayload(uint8(p.opts.group), msg, p.peerAddr)
}
