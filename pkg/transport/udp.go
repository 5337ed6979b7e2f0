package transport

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/umpkit/midici/pkg/ump"
)

// DefaultPort is the default port for UMP over UDP.
const DefaultPort = 5673

// MaxDatagramBytes is the maximum size of a single UMP datagram. It fits a
// typical Ethernet MTU after IP and UDP headers and is word-aligned.
const MaxDatagramBytes = 1472

// PacketHandler is called for each UMP packet decoded from the wire.
// addr identifies the sender.
type PacketHandler func(pkt ump.Packet, addr net.Addr)

// UDP carries Universal MIDI Packets over UDP datagrams.
//
// A datagram holds a sequence of big-endian 32-bit UMP words. The read loop
// walks each datagram word by word, skipping message types it does not
// handle, and delivers 64-bit data messages to the configured PacketHandler.
type UDP struct {
	conn    net.PacketConn
	handler PacketHandler
	closeCh chan struct{}
	wg      sync.WaitGroup
	log     logging.LeveledLogger

	mu      sync.RWMutex
	started bool
	closed  bool
}

// UDPConfig configures the UDP transport.
type UDPConfig struct {
	// Conn is an optional pre-existing PacketConn to use.
	// If nil, a new connection will be created using ListenAddr.
	Conn net.PacketConn

	// ListenAddr is the address to listen on (e.g., ":5673").
	// Ignored if Conn is provided.
	ListenAddr string

	// PacketHandler is called for each received data packet.
	// Required.
	PacketHandler PacketHandler

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// NewUDP creates a new UDP transport with the given configuration.
func NewUDP(config UDPConfig) (*UDP, error) {
	if config.PacketHandler == nil {
		return nil, ErrNoHandler
	}

	u := &UDP{
		conn:    config.Conn,
		handler: config.PacketHandler,
		closeCh: make(chan struct{}),
	}

	if config.LoggerFactory != nil {
		u.log = config.LoggerFactory.NewLogger("transport-udp")
	}

	if u.conn == nil {
		addr := config.ListenAddr
		if addr == "" {
			addr = ":0" // Use ephemeral port
		}

		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return nil, err
		}
		u.conn = conn
	}

	return u, nil
}

// Start begins the read loop for receiving packets.
// Packets are delivered to the configured PacketHandler.
func (u *UDP) Start() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	if u.started {
		u.mu.Unlock()
		return ErrAlreadyStarted
	}
	u.started = true
	u.mu.Unlock()

	if u.log != nil {
		u.log.Infof("starting UDP transport on %s", u.conn.LocalAddr())
	}

	u.wg.Add(1)
	go u.readLoop()

	return nil
}

// Stop closes the transport and waits for the read loop to exit.
func (u *UDP) Stop() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	u.closed = true
	u.mu.Unlock()

	if u.log != nil {
		u.log.Info("stopping UDP transport")
	}

	close(u.closeCh)

	// Set a short deadline to unblock any pending reads
	u.conn.SetReadDeadline(time.Now())
	u.conn.Close()
	u.wg.Wait()

	return nil
}

// Send encodes the given packets into a single datagram and sends it to addr.
func (u *UDP) Send(pkts []ump.Packet, addr net.Addr) error {
	u.mu.RLock()
	if u.closed {
		u.mu.RUnlock()
		return ErrClosed
	}
	u.mu.RUnlock()

	if addr == nil {
		return ErrInvalidAddress
	}
	if len(pkts) == 0 {
		return ErrNoPackets
	}
	if len(pkts)*ump.PacketBytes > MaxDatagramBytes {
		return ErrDatagramTooLarge
	}

	buf := make([]byte, 0, len(pkts)*ump.PacketBytes)
	for _, p := range pkts {
		enc, err := p.Encode()
		if err != nil {
			return err
		}
		buf = append(buf, enc...)
	}

	if u.log != nil {
		u.log.Debugf("sending %d packets (%d bytes) to %v", len(pkts), len(buf), addr)
	}

	if _, err := u.conn.WriteTo(buf, addr); err != nil {
		if u.log != nil {
			u.log.Warnf("send failed: %v", err)
		}
		return err
	}

	return nil
}

// SendPayload packetizes a System Exclusive payload for the given group and
// sends the resulting packets in a single datagram.
func (u *UDP) SendPayload(group uint8, payload []byte, addr net.Addr) error {
	pkts, err := ump.Packetize(group, payload)
	if err != nil {
		return err
	}
	return u.Send(pkts, addr)
}

// LocalAddr returns the local address the transport is listening on.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

// readLoop reads datagrams from the connection and dispatches decoded packets.
func (u *UDP) readLoop() {
	defer u.wg.Done()

	buf := make([]byte, MaxDatagramBytes)

	for {
		select {
		case <-u.closeCh:
			return
		default:
		}

		n, addr, err := u.conn.ReadFrom(buf)
		if err != nil {
			// Check if we're shutting down
			select {
			case <-u.closeCh:
				return
			default:
				if u.log != nil {
					u.log.Warnf("UDP read error: %v", err)
				}
				continue
			}
		}

		if n == 0 {
			continue
		}

		if u.log != nil {
			u.log.Debugf("received %d bytes from %v", n, addr)
		}

		u.dispatch(buf[:n], addr)
	}
}

// dispatch walks a datagram word by word and delivers data packets.
// Messages of other types are skipped using their fixed word counts.
// A truncated trailing message is dropped.
func (u *UDP) dispatch(data []byte, addr net.Addr) {
	words := make([]uint32, 0, len(data)/4)
	for len(data) >= 4 {
		words = append(words, binary.BigEndian.Uint32(data))
		data = data[4:]
	}
	if len(data) != 0 && u.log != nil {
		u.log.Warnf("datagram from %v has %d trailing bytes, ignoring", addr, len(data))
	}

	for i := 0; i < len(words); {
		w0 := words[i]
		mt := ump.MessageType(w0 >> 28)
		wc := mt.WordCount()

		if i+wc > len(words) {
			if u.log != nil {
				u.log.Warnf("truncated %v message from %v, dropping remainder", mt, addr)
			}
			return
		}

		if mt == ump.MessageTypeData {
			pkt, err := ump.FromWords(w0, words[i+1])
			if err != nil {
				if u.log != nil {
					u.log.Warnf("invalid data packet from %v: %v", addr, err)
				}
			} else {
				u.handler(pkt, addr)
			}
		}

		i += wc
	}
}
