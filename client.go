package ds

import (
	"fmt"
	"sync"
)

// Client is the public façade (C9): the only type applications construct
// directly. It owns the configuration store, event queue, joystick
// registry, and the dispatcher goroutine, and starts/stops them in the
// order spec.md §3's lifecycle names (client store, event queue, sockets,
// joysticks, protocol; reverse on Close).
type Client struct {
	mu sync.Mutex

	cfg        *Config
	events     *eventQueue
	joysticks  *joystickRegistry
	metrics    *Metrics
	registry   *protocolRegistry
	dispatcher *dispatcher

	customFMS, customRadio, customRobot string

	opened bool
}

// NewClient builds an unopened engine. Call Open to select a protocol year
// and start communications.
func NewClient() *Client {
	events := newEventQueue()
	cfg := newConfig(events)
	return &Client{
		cfg:       cfg,
		events:    events,
		joysticks: newJoystickRegistry(events),
		metrics:   newMetrics(),
		registry:  newProtocolRegistry(),
	}
}

// Open selects protocolYear ("2014", "2015", "2016", "2018", "2019", or
// "2020"), sets the team number, and starts the dispatcher. Calling Open
// twice without an intervening Close is a no-op.
func (c *Client) Open(teamNumber int, protocolYear string) error {
	p, err := c.registry.Get(protocolYear)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.opened {
		c.mu.Unlock()
		return nil
	}
	c.cfg.SetTeamNumber(teamNumber)
	c.dispatcher = newDispatcher(c.cfg, c.events, c.joysticks, c.metrics)
	c.opened = true
	c.mu.Unlock()

	c.dispatcher.ConfigureProtocol(c.wrapProtocol(p))
	c.dispatcher.Start()
	return nil
}

// ConfigureProtocol swaps the running engine over to a different protocol
// year without losing the event queue, joystick table, or configuration
// store (spec.md §4.7's reinstall contract).
func (c *Client) ConfigureProtocol(protocolYear string) error {
	p, err := c.registry.Get(protocolYear)
	if err != nil {
		return err
	}
	c.mu.Lock()
	d := c.dispatcher
	c.mu.Unlock()
	if d == nil {
		return wrapErr("ds", fmt.Errorf("client is not open"))
	}
	d.ConfigureProtocol(c.wrapProtocol(p))
	return nil
}

// Close tears the engine down in the reverse of Open's startup order:
// dispatcher first, then joysticks, events, and configuration.
func (c *Client) Close() {
	c.mu.Lock()
	if !c.opened {
		c.mu.Unlock()
		return
	}
	c.opened = false
	d := c.dispatcher
	c.dispatcher = nil
	c.mu.Unlock()

	if d != nil {
		d.Stop()
	}
	c.joysticks.Reset()
	c.events.reset()
	c.cfg.reset()
}

// wrapProtocol layers the client's custom-address overrides on top of a
// protocol's default addressing closures, so GetAppliedFMSAddress and
// friends can report "custom if set, else protocol default" without the
// Protocol type itself knowing Client exists.
func (c *Client) wrapProtocol(p *Protocol) *Protocol {
	wrapped := *p
	origFMS, origRadio, origRobot := p.FMSAddress, p.RadioAddress, p.RobotAddress

	wrapped.FMSAddress = func(s *protocolState, cfg *Config) string {
		if addr := c.getCustom(&c.customFMS); addr != "" {
			return addr
		}
		return origFMS(s, cfg)
	}
	wrapped.RadioAddress = func(s *protocolState, cfg *Config) string {
		if addr := c.getCustom(&c.customRadio); addr != "" {
			return addr
		}
		return origRadio(s, cfg)
	}
	wrapped.RobotAddress = func(s *protocolState, cfg *Config) string {
		if addr := c.getCustom(&c.customRobot); addr != "" {
			return addr
		}
		return origRobot(s, cfg)
	}
	return &wrapped
}

func (c *Client) getCustom(field *string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *field
}

// SetCustomFMSAddress/Radio/Robot override the protocol's computed address
// for that peer. An empty string reverts to the protocol default.
func (c *Client) SetCustomFMSAddress(addr string) {
	c.mu.Lock()
	c.customFMS = addr
	c.mu.Unlock()
}

func (c *Client) SetCustomRadioAddress(addr string) {
	c.mu.Lock()
	c.customRadio = addr
	c.mu.Unlock()
}

func (c *Client) SetCustomRobotAddress(addr string) {
	c.mu.Lock()
	c.customRobot = addr
	c.mu.Unlock()
}

// GetAppliedFMSAddress/Radio/Robot report the address actually in effect:
// the custom override if one is set, otherwise the running protocol's
// default address for that peer, evaluated at call time.
func (c *Client) GetAppliedFMSAddress() string {
	if addr := c.getCustom(&c.customFMS); addr != "" {
		return addr
	}
	fms, _, _ := c.dispatcherAddresses()
	return fms
}

func (c *Client) GetAppliedRadioAddress() string {
	if addr := c.getCustom(&c.customRadio); addr != "" {
		return addr
	}
	_, radio, _ := c.dispatcherAddresses()
	return radio
}

func (c *Client) GetAppliedRobotAddress() string {
	if addr := c.getCustom(&c.customRobot); addr != "" {
		return addr
	}
	_, _, robot := c.dispatcherAddresses()
	return robot
}

// dispatcherAddresses evaluates the running protocol's address closures
// directly rather than reporting "last sent to" — a peer whose send timer
// is disabled (radio, in the modern protocol family) or hasn't sent its
// first packet yet still has a well-defined protocol default (spec.md §4.9,
// Testable Property 6).
func (c *Client) dispatcherAddresses() (fms, radio, robot string) {
	c.mu.Lock()
	d := c.dispatcher
	c.mu.Unlock()
	if d == nil {
		return "", "", ""
	}
	return d.ComputedAddresses()
}

// RebootRobot and RestartRobotCode request the running protocol's one-shot
// flags; they are no-ops if the client is not open.
func (c *Client) RebootRobot() {
	c.mu.Lock()
	d := c.dispatcher
	c.mu.Unlock()
	if d != nil {
		d.RebootRobot()
	}
}

func (c *Client) RestartRobotCode() {
	c.mu.Lock()
	d := c.dispatcher
	c.mu.Unlock()
	if d != nil {
		d.RestartRobotCode()
	}
}

// SendNetConsoleMessage queues bytes for the next dispatcher tick's
// netconsole flush (spec.md §4.9 send_netconsole_message).
func (c *Client) SendNetConsoleMessage(p []byte) {
	c.cfg.AppendNetConsole(p)
}

// PollEvent removes and returns the oldest pending event, or (Event{},
// false) if the queue is empty (spec.md §4.3).
func (c *Client) PollEvent() (Event, bool) {
	return c.events.poll()
}

// Metrics exposes the engine's Prometheus registry so a host application
// can mount it under its own HTTP handler; the engine never listens on a
// port itself.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// ProtocolYears lists every protocol year this build knows how to speak.
func (c *Client) ProtocolYears() []string {
	return c.registry.Years()
}

// --- Configuration store passthrough ------------------------------------
// These simply forward to Config; they exist so callers only ever import
// one type (Client) for the whole public surface (spec.md §3).

func (c *Client) SetTeamNumber(n int)        { c.cfg.SetTeamNumber(n) }
func (c *Client) TeamNumber() int            { return c.cfg.TeamNumber() }
func (c *Client) Voltage() float64           { return c.cfg.Voltage() }
func (c *Client) CPU() int                   { return c.cfg.CPU() }
func (c *Client) RAM() int                   { return c.cfg.RAM() }
func (c *Client) Disk() int                  { return c.cfg.Disk() }
func (c *Client) CAN() int                   { return c.cfg.CAN() }
func (c *Client) RobotCode() bool            { return c.cfg.RobotCode() }
func (c *Client) RobotEnabled() bool         { return c.cfg.RobotEnabled() }
func (c *Client) EmergencyStopped() bool     { return c.cfg.EmergencyStopped() }
func (c *Client) FMSComms() bool             { return c.cfg.FMSComms() }
func (c *Client) RadioComms() bool           { return c.cfg.RadioComms() }
func (c *Client) RobotComms() bool           { return c.cfg.RobotComms() }
func (c *Client) Mode() ControlMode          { return c.cfg.Mode() }
func (c *Client) Alliance() Alliance         { return c.cfg.Alliance() }
func (c *Client) Position() Position         { return c.cfg.Position() }
func (c *Client) Status() string             { return c.cfg.Status() }
func (c *Client) CanBeEnabled() bool         { return c.cfg.CanBeEnabled() }
func (c *Client) SetRobotEnabled(v bool)     { c.cfg.SetRobotEnabled(v) }
func (c *Client) SetEmergencyStopped(v bool) { c.cfg.SetEmergencyStopped(v) }
func (c *Client) SetMode(m ControlMode)      { c.cfg.SetMode(m) }
func (c *Client) SetAlliance(a Alliance)     { c.cfg.SetAlliance(a) }
func (c *Client) SetPosition(p Position)     { c.cfg.SetPosition(p) }
func (c *Client) SetStatus(s string)         { c.cfg.SetStatus(s) }

// --- Joystick registry passthrough ---------------------------------------

func (c *Client) AddJoystick(axes, hats, buttons int) int {
	return c.joysticks.Add(axes, hats, buttons)
}
func (c *Client) JoystickCount() int                       { return c.joysticks.Count() }
func (c *Client) SetJoystickAxis(idx, axis int, v float64) { c.joysticks.SetAxis(idx, axis, v) }
func (c *Client) SetJoystickHat(idx, hat, angle int)       { c.joysticks.SetHat(idx, hat, angle) }
func (c *Client) SetJoystickButton(idx, button int, pressed bool) {
	c.joysticks.SetButton(idx, button, pressed)
}

func (c *Client) JoystickAxis(idx, axis int) float64 {
	return c.joysticks.GetAxis(idx, axis, c.cfg.RobotEnabled())
}

func (c *Client) JoystickHat(idx, hat int) int {
	return c.joysticks.GetHat(idx, hat, c.cfg.RobotEnabled())
}

func (c *Client) JoystickButton(idx, button int) bool {
	return c.joysticks.GetButton(idx, button, c.cfg.RobotEnabled())
}
