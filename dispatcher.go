package ds

import (
	"log"
	"net"
	"sync"
	"time"
)

// dispatcher is the periodic communications engine (C8, spec.md §4.8): one
// goroutine servicing three send timers, three receive watchdogs, and the
// netconsole buffer on a single shared tick, grounded on
// clients/hpsdr/protocol2.go's discoveryThread/readThread pattern of a
// select-on-stopChan worker loop paced at the shared timer precision.
type dispatcher struct {
	mu sync.Mutex

	cfg       *Config
	events    *eventQueue
	joysticks *joystickRegistry
	metrics   *Metrics
	sessionID string

	protocol *Protocol
	state    *protocolState

	fmsEP, radioEP, robotEP, netConsoleEP *endpoint

	sendFMS, sendRadio, sendRobot *timer
	wdFMS, wdRadio, wdRobot       *timer

	lastFMSAddr, lastRadioAddr, lastRobotAddr string

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

func newDispatcher(cfg *Config, events *eventQueue, joysticks *joystickRegistry, m *Metrics) *dispatcher {
	return &dispatcher{
		cfg:          cfg,
		events:       events,
		joysticks:    joysticks,
		metrics:      m,
		sessionID:    newSessionID(),
		sendFMS:      newTimer(0),
		sendRadio:    newTimer(0),
		sendRobot:    newTimer(0),
		wdFMS:        newTimer(0),
		wdRadio:      newTimer(0),
		wdRobot:      newTimer(0),
		fmsEP:        newEndpoint("", 0, 0, SocketDisabled, false),
		radioEP:      newEndpoint("", 0, 0, SocketDisabled, false),
		robotEP:      newEndpoint("", 0, 0, SocketDisabled, false),
		netConsoleEP: newEndpoint("", 0, 0, SocketDisabled, false),
	}
}

// watchdogMs derives a receive watchdog's period from its peer's send
// interval: fifty missed sends, capped at one second, per spec.md §4.7's
// reinstall step. A peer with no send interval of its own (radio, in the
// modern family) still gets the one-second default.
func watchdogMs(intervalMs int) int {
	if intervalMs <= 0 {
		return 1000
	}
	ms := intervalMs * 50
	if ms > 1000 {
		ms = 1000
	}
	return ms
}

// ConfigureProtocol installs p, replacing whatever protocol is currently
// running. It follows the six-step reinstall sequence from spec.md §4.7:
// close old sockets, stop the six timers, swap the protocol and reset its
// state, open new sockets, reprogram the send timers and watchdogs, start
// all six timers.
func (d *dispatcher) ConfigureProtocol(p *Protocol) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fmsEP.Close()
	d.radioEP.Close()
	d.robotEP.Close()
	d.netConsoleEP.Close()

	d.sendFMS.Stop()
	d.sendRadio.Stop()
	d.sendRobot.Stop()
	d.wdFMS.Stop()
	d.wdRadio.Stop()
	d.wdRobot.Stop()

	d.protocol = p
	d.state = newProtocolState()
	d.lastFMSAddr, d.lastRadioAddr, d.lastRobotAddr = "", "", ""

	d.fmsEP = newEndpoint(p.FMSAddress(d.state, d.cfg), p.FMSSocket.InPort, p.FMSSocket.OutPort, p.FMSSocket.Kind, p.FMSSocket.Broadcast)
	d.radioEP = newEndpoint(p.RadioAddress(d.state, d.cfg), p.RadioSocket.InPort, p.RadioSocket.OutPort, p.RadioSocket.Kind, p.RadioSocket.Broadcast)
	d.robotEP = newEndpoint(p.RobotAddress(d.state, d.cfg), p.RobotSocket.InPort, p.RobotSocket.OutPort, p.RobotSocket.Kind, p.RobotSocket.Broadcast)
	d.netConsoleEP = newEndpoint(p.NetConsoleSocket.Address, p.NetConsoleSocket.InPort, p.NetConsoleSocket.OutPort, p.NetConsoleSocket.Kind, p.NetConsoleSocket.Broadcast)

	d.fmsEP.Open()
	d.radioEP.Open()
	d.robotEP.Open()
	d.netConsoleEP.Open()

	precisionMs := int(timerPrecision / time.Millisecond)
	d.sendFMS.Init(p.FMSIntervalMs, precisionMs)
	d.sendRadio.Init(p.RadioIntervalMs, precisionMs)
	d.sendRobot.Init(p.RobotIntervalMs, precisionMs)
	d.wdFMS.Init(watchdogMs(p.FMSIntervalMs), precisionMs)
	d.wdRadio.Init(watchdogMs(p.RadioIntervalMs), precisionMs)
	d.wdRobot.Init(watchdogMs(p.RobotIntervalMs), precisionMs)

	d.sendFMS.Start()
	d.sendRadio.Start()
	d.sendRobot.Start()
	d.wdFMS.Start()
	d.wdRadio.Start()
	d.wdRobot.Start()

	log.Printf("ds[%s]: protocol reinstalled: %s", d.sessionID, p.Name)
}

// ComputedAddresses reports the protocol's own default address for each
// peer, evaluated fresh from its address closures rather than "last sent
// to" — spec.md §4.9's GetAppliedFMS/Radio/RobotAddress must report the
// default even for a peer whose send timer is disabled (radio, in the
// modern protocol family) or hasn't sent its first packet yet.
func (d *dispatcher) ComputedAddresses() (fms, radio, robot string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.protocol == nil {
		return "", "", ""
	}
	return d.protocol.FMSAddress(d.state, d.cfg),
		d.protocol.RadioAddress(d.state, d.cfg),
		d.protocol.RobotAddress(d.state, d.cfg)
}

func (d *dispatcher) RebootRobot() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.protocol != nil && d.protocol.RebootRobot != nil {
		d.protocol.RebootRobot(d.state)
	}
}

func (d *dispatcher) RestartRobotCode() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.protocol != nil && d.protocol.RestartCode != nil {
		d.protocol.RestartCode(d.state)
	}
}

// Start spins up the tick goroutine. It is a no-op if already started.
func (d *dispatcher) Start() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	go d.run()
}

// Stop signals the tick goroutine to exit, waits for it, then closes every
// endpoint.
func (d *dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	close(d.stopCh)
	done := d.doneCh
	d.mu.Unlock()

	<-done

	d.fmsEP.Close()
	d.radioEP.Close()
	d.robotEP.Close()
	d.netConsoleEP.Close()
}

func (d *dispatcher) run() {
	defer close(d.doneCh)

	for {
		select {
		case <-d.stopCh:
			return
		default:
		}
		d.tick(time.Now())
		sleep(timerPrecision)
	}
}

// tick runs one pass of the communications engine: send, netconsole flush,
// receive, watchdog handling (spec.md §4.8). It holds d.mu for the whole
// pass: protocol reinstalls are applied synchronously by ConfigureProtocol
// under the same mutex, so a tick always sees a consistent (protocol,
// state, endpoints) triple and the one-shot flags RebootRobot/RestartCode
// raise can never race a concurrent packet build.
func (d *dispatcher) tick(now time.Time) {
	started := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.protocol
	s := d.state
	if p == nil {
		return
	}

	if d.sendFMS.poll(now) {
		d.sendTo(d.fmsEP, &d.lastFMSAddr, p.FMSAddress(s, d.cfg), p.BuildFMS(s, d.cfg), "fms")
		d.sendFMS.Reset()
	}
	if d.sendRadio.poll(now) {
		d.sendTo(d.radioEP, &d.lastRadioAddr, p.RadioAddress(s, d.cfg), p.BuildRadio(s, d.cfg), "radio")
		d.sendRadio.Reset()
	}
	if d.sendRobot.poll(now) {
		sticks := d.joysticks.snapshotAll()
		d.sendTo(d.robotEP, &d.lastRobotAddr, p.RobotAddress(s, d.cfg), p.BuildRobot(s, d.cfg, sticks), "robot")
		d.sendRobot.Reset()
	}

	if out := d.cfg.drainNetConsole(); len(out) > 0 {
		d.netConsoleEP.Send(out)
	}

	// Each parser raises its own peer-comms flag as the first thing it does
	// on a well-formed packet (protocol_modern.go, protocol_2014.go), so
	// that event precedes any field changes the same packet triggers. The
	// dispatcher only owns the watchdog/metrics side effects here.
	if data := d.fmsEP.Read(); data != nil && p.ParseFMS(s, d.cfg, data) {
		if host := peerHost(d.fmsEP.PeerAddr()); host != "" {
			s.fmsAddrSeen = host
		}
		d.wdFMS.Reset()
		d.metrics.received("fms")
		d.metrics.connected("fms", true)
	}
	if data := d.radioEP.Read(); data != nil && p.ParseRadio(s, d.cfg, data) {
		d.wdRadio.Reset()
		d.metrics.received("radio")
		d.metrics.connected("radio", true)
	}
	if data := d.robotEP.Read(); data != nil && p.ParseRobot(s, d.cfg, data) {
		d.wdRobot.Reset()
		d.metrics.received("robot")
		d.metrics.connected("robot", true)
	}
	if data := d.netConsoleEP.Read(); data != nil {
		d.events.push(Event{Kind: NetConsoleMessage, Bytes: data})
	}

	if d.wdFMS.poll(now) {
		d.cfg.onFMSTimeout()
		d.metrics.connected("fms", false)
		p.ResetFMS(s)
		d.wdFMS.Reset()
	}
	if d.wdRadio.poll(now) {
		d.cfg.onRadioTimeout()
		d.metrics.connected("radio", false)
		p.ResetRadio(s)
		d.wdRadio.Reset()
	}
	if d.wdRobot.poll(now) {
		d.cfg.onRobotTimeout()
		d.metrics.connected("robot", false)
		p.ResetRobot(s)
		d.wdRobot.Reset()
	}

	d.metrics.observeTick(time.Since(started).Seconds())
}

func (d *dispatcher) sendTo(ep *endpoint, lastAddr *string, addr string, payload []byte, peerName string) {
	if payload == nil {
		return
	}
	if addr != "" && addr != *lastAddr {
		ep.ChangeAddress(addr)
		*lastAddr = addr
	}
	ep.Send(payload)
	d.metrics.sent(peerName)
}

// peerHost strips the port from a host:port pair, returning "" on any
// address it can't parse (spec.md §4.7's "FMS uses a fallback constant
// until the FMS packet reveals its origin").
func peerHost(hostport string) string {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return ""
	}
	return host
}
