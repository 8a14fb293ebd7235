package ds

import (
	"context"
	"log"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// socketKind distinguishes transport and the "do nothing" endpoint.
type socketKind int

const (
	SocketUDP socketKind = iota
	SocketTCP
	SocketDisabled
)

// endpoint is a single peer's UDP (or TCP) connection pair: an input port
// bound for non-blocking receive and an output port used to send. Uninitialized
// endpoints (zero value, never Open'd) silently no-op every operation, per
// spec.md §4.4 and §7 ("misuse" is best-effort, no diagnostics).
type endpoint struct {
	mu sync.RWMutex

	address   string
	inPort    int
	outPort   int
	kind      socketKind
	disabled  bool
	broadcast bool

	in     net.PacketConn // bound input, non-blocking reads via deadline
	out    net.Conn       // connected (UDP) or dialed (TCP) output
	opened bool
	epoch  int // bumped on Open/ChangeAddress so a stale redial can't clobber a newer one

	inBuf    []byte
	lastPeer string
}

func newEndpoint(address string, inPort, outPort int, kind socketKind, broadcast bool) *endpoint {
	return &endpoint{
		address:   address,
		inPort:    inPort,
		outPort:   outPort,
		kind:      kind,
		disabled:  kind == SocketDisabled,
		broadcast: broadcast,
		inBuf:     make([]byte, 4096),
	}
}

// listenConfig applies SO_REUSEADDR/SO_REUSEPORT before bind so multiple
// driver-station instances (or a quick restart) can coexist on the same
// port, grounded on clients/hpsdr/protocol2.go's createListenConfig.
// Platforms lacking SO_REUSEPORT fall back to SO_REUSEADDR alone — the
// open question noted in spec.md §9 is resolved at runtime rather than at
// build time: the Control callback logs and continues instead of failing
// Open if SO_REUSEPORT is rejected.
func listenConfig(broadcast bool) *net.ListenConfig {
	return &net.ListenConfig{
		Control: func(_ string, _ string, c syscall.RawConn) error {
			var ctlErr error
			err := c.Control(func(fd uintptr) {
				if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
					ctlErr = err
					return
				}
				if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
					log.Printf("ds: SO_REUSEPORT unavailable, continuing with SO_REUSEADDR only: %v", err)
				}
				if broadcast {
					if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1); err != nil {
						log.Printf("ds: SO_BROADCAST unavailable: %v", err)
					}
				}
			})
			if err != nil {
				return err
			}
			return ctlErr
		},
	}
}

// Open binds the input port and dials the output socket. For UDP the output
// socket is connected, not unconnected: every Send goes to the one dialed
// address until ChangeAddress redials it. Address resolution can block, so Open
// performs it in a background goroutine and returns immediately; I/O
// operations issued before resolution completes are no-ops rather than
// errors (spec.md §4.4).
func (e *endpoint) Open() {
	e.mu.Lock()
	if e.disabled || e.opened {
		e.mu.Unlock()
		return
	}
	e.epoch++
	epoch := e.epoch
	e.mu.Unlock()

	go e.openAsync(epoch)
}

func (e *endpoint) openAsync(epoch int) {
	e.mu.RLock()
	addr, inPort, outPort, kind, broadcast := e.address, e.inPort, e.outPort, e.kind, e.broadcast
	e.mu.RUnlock()

	// TCP endpoints read from the dialed connection itself; only UDP binds
	// a separate packet-oriented input socket.
	var inConn net.PacketConn
	if kind == SocketUDP {
		lc := listenConfig(broadcast)
		c, err := lc.ListenPacket(context.Background(), "udp4", udpBindAddr(inPort))
		if err != nil {
			log.Printf("ds: failed to open input socket on port %d: %v", inPort, err)
			return
		}
		inConn = c
	}

	outConn, err := dialOutput(addr, outPort, kind, broadcast)
	if err != nil {
		log.Printf("ds: failed to open output socket to %s:%d: %v", addr, outPort, err)
	}

	e.mu.Lock()
	if e.epoch != epoch {
		// a ChangeAddress (or a second Open) superseded this resolution;
		// discard what we just built rather than clobbering the newer one.
		e.mu.Unlock()
		if inConn != nil {
			inConn.Close()
		}
		if outConn != nil {
			outConn.Close()
		}
		return
	}
	e.in = inConn
	e.out = outConn
	e.opened = true
	if e.address != addr {
		// a ChangeAddress arrived while this resolution was in flight; it
		// only stored the new address, so dial it now.
		e.epoch++
		newEpoch, newAddr := e.epoch, e.address
		e.mu.Unlock()
		go e.redialOutput(newAddr, outPort, kind, broadcast, newEpoch)
		return
	}
	e.mu.Unlock()
}

// dialOutput resolves addr and connects the output socket for kind, falling
// back to the wildcard address on UDP resolution failure (spec.md §4.4).
func dialOutput(addr string, outPort int, kind socketKind, broadcast bool) (net.Conn, error) {
	if kind == SocketTCP {
		return net.DialTimeout("tcp4", net.JoinHostPort(addr, strconv.Itoa(outPort)), 2*time.Second)
	}
	raddr, rerr := net.ResolveUDPAddr("udp4", net.JoinHostPort(addr, strconv.Itoa(outPort)))
	if rerr != nil {
		raddr, _ = net.ResolveUDPAddr("udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(outPort)))
	}
	outConn, err := net.DialUDP("udp4", nil, raddr)
	if err == nil && broadcast {
		setBroadcast(outConn)
	}
	return outConn, err
}

// Close releases the underlying file descriptors. Safe to call on an
// endpoint that never finished opening.
func (e *endpoint) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++ // invalidate any in-flight Open/ChangeAddress resolution
	if e.in != nil {
		e.in.Close()
		e.in = nil
	}
	if e.out != nil {
		e.out.Close()
		e.out = nil
	}
	e.opened = false
}

// Send writes bytes to the output socket and returns the byte count. No-op
// (returns 0) if disabled or not yet open. The write deadline is 2s so a hung peer cannot
// stall the dispatcher loop (spec.md §5).
func (e *endpoint) Send(p []byte) int {
	e.mu.RLock()
	out := e.out
	disabled := e.disabled
	e.mu.RUnlock()
	if disabled || out == nil {
		return 0
	}
	out.SetWriteDeadline(time.Now().Add(2 * time.Second))
	n, err := out.Write(p)
	if err != nil {
		log.Printf("ds: send to %s failed: %v", out.RemoteAddr(), err)
	}
	return n
}

// Read drains one pending packet from the input socket without blocking.
// Returns nil if nothing is queued, disabled, or not yet open. TCP
// endpoints read from the dialed connection since they have no separate
// bound input socket.
func (e *endpoint) Read() []byte {
	e.mu.RLock()
	in, out, kind, disabled := e.in, e.out, e.kind, e.disabled
	e.mu.RUnlock()
	if disabled {
		return nil
	}

	if kind == SocketTCP {
		if out == nil {
			return nil
		}
		out.SetReadDeadline(time.Now().Add(1 * time.Millisecond))
		n, err := out.Read(e.inBuf)
		if err != nil || n == 0 {
			return nil
		}
		data := make([]byte, n)
		copy(data, e.inBuf[:n])
		e.mu.Lock()
		e.lastPeer = out.RemoteAddr().String()
		e.mu.Unlock()
		return data
	}

	if in == nil {
		return nil
	}
	in.SetReadDeadline(time.Now().Add(1 * time.Millisecond))
	n, peerAddr, err := in.ReadFrom(e.inBuf)
	if err != nil || n == 0 {
		return nil
	}
	data := make([]byte, n)
	copy(data, e.inBuf[:n])

	e.mu.Lock()
	e.lastPeer = peerAddr.String()
	e.mu.Unlock()

	return data
}

// PeerAddr returns the host:port the most recent Read came from, or "" if
// nothing has arrived yet.
func (e *endpoint) PeerAddr() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastPeer
}

// ChangeAddress updates the address an open endpoint sends to, redialing
// the output socket in the background so the caller (the dispatcher's send
// phase) is never blocked on address resolution (spec.md §4.4). If the
// endpoint has not finished opening yet, the new address just takes effect
// whenever Open's own resolution completes.
func (e *endpoint) ChangeAddress(addr string) {
	e.mu.Lock()
	if e.address == addr {
		e.mu.Unlock()
		return
	}
	e.address = addr
	if e.disabled || !e.opened {
		e.mu.Unlock()
		return
	}
	e.epoch++
	epoch := e.epoch
	outPort, kind, broadcast := e.outPort, e.kind, e.broadcast
	e.mu.Unlock()

	go e.redialOutput(addr, outPort, kind, broadcast, epoch)
}

func (e *endpoint) redialOutput(addr string, outPort int, kind socketKind, broadcast bool, epoch int) {
	outConn, err := dialOutput(addr, outPort, kind, broadcast)
	if err != nil {
		log.Printf("ds: failed to redial output socket to %s:%d: %v", addr, outPort, err)
		return
	}

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		outConn.Close()
		return
	}
	old := e.out
	e.out = outConn
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// setBroadcast enables SO_BROADCAST on an already-dialed UDP socket, used
// for the netconsole output endpoint (spec.md §4.4).
func setBroadcast(conn *net.UDPConn) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1); err != nil {
			log.Printf("ds: SO_BROADCAST unavailable: %v", err)
		}
	})
}

func udpBindAddr(port int) string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(port))
}
