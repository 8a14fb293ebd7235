package ds

import "sync"

// Config is the process-wide configuration store (spec.md §3, C5). All
// getters/setters operate on this singleton through the Client façade. A
// single mutex guards the whole struct — spec.md §5 allows either that or
// per-field atomics with an emit-on-CAS pattern; a single mutex is simpler
// and every setter here is O(1), so contention is not a concern.
type Config struct {
	mu sync.Mutex

	events *eventQueue

	teamNumber int
	voltage    float64
	cpu        int
	ram        int
	disk       int
	can        int

	robotCode        bool
	robotEnabled     bool
	emergencyStopped bool
	fmsComms         bool
	radioComms       bool
	robotComms       bool

	mode     ControlMode
	alliance Alliance
	position Position

	status string

	netConsoleOut *byteBuffer
}

func newConfig(q *eventQueue) *Config {
	return &Config{
		events:        q,
		mode:          ModeTeleoperated,
		alliance:      AllianceRed,
		position:      Position1,
		netConsoleOut: newByteBuffer(),
	}
}

// reset restores every field to its default, as on engine close (spec.md
// §3 lifecycle). It does not touch the event queue itself.
func (c *Config) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teamNumber = 0
	c.voltage = 0
	c.cpu, c.ram, c.disk, c.can = 0, 0, 0, 0
	c.robotCode, c.robotEnabled, c.emergencyStopped = false, false, false
	c.fmsComms, c.radioComms, c.robotComms = false, false, false
	c.mode = ModeTeleoperated
	c.alliance = AllianceRed
	c.position = Position1
	c.status = ""
	c.netConsoleOut.Reset()
}

func (c *Config) emit(e Event) {
	if c.events != nil {
		c.events.push(e)
	}
}

// clamp100 normalizes a raw utilization reading to 0-100, per spec.md §3.
func clamp100(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// --- Plain getters -----------------------------------------------------

func (c *Config) TeamNumber() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teamNumber
}

func (c *Config) Voltage() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.voltage
}

func (c *Config) CPU() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cpu
}

func (c *Config) RAM() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ram
}

func (c *Config) Disk() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disk
}

func (c *Config) CAN() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.can
}

func (c *Config) RobotCode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.robotCode
}

func (c *Config) RobotEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.robotEnabled
}

func (c *Config) EmergencyStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emergencyStopped
}

func (c *Config) FMSComms() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fmsComms
}

func (c *Config) RadioComms() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radioComms
}

func (c *Config) RobotComms() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.robotComms
}

func (c *Config) Mode() ControlMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Config) Alliance() Alliance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alliance
}

func (c *Config) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *Config) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// CanBeEnabled is a pure function of the three enable preconditions
// (spec.md §4.9 get_can_be_enabled).
func (c *Config) CanBeEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canBeEnabledLocked()
}

func (c *Config) canBeEnabledLocked() bool {
	return c.robotCode && c.robotComms && !c.emergencyStopped
}

// --- Setters -------------------------------------------------------------
// Every setter compares before writing and emits the corresponding event
// only on an actual change (spec.md §4.5, Testable Property 3).

// SetTeamNumber stores the team number, clamped to the 0-25599 range the
// static-IP scheme can express (spec.md §6).
func (c *Config) SetTeamNumber(n int) {
	if n < 0 {
		n = 0
	}
	if n > 25599 {
		n = 25599
	}
	c.mu.Lock()
	c.teamNumber = n
	c.mu.Unlock()
}

func (c *Config) SetVoltage(v float64) {
	c.mu.Lock()
	changed := c.voltage != v
	c.voltage = v
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: VoltageChanged, Float: v})
	}
}

func (c *Config) SetCPU(v int) {
	v = clamp100(v)
	c.mu.Lock()
	changed := c.cpu != v
	c.cpu = v
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: CpuChanged, Int: v})
	}
}

func (c *Config) SetRAM(v int) {
	v = clamp100(v)
	c.mu.Lock()
	changed := c.ram != v
	c.ram = v
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: RamChanged, Int: v})
	}
}

func (c *Config) SetDisk(v int) {
	v = clamp100(v)
	c.mu.Lock()
	changed := c.disk != v
	c.disk = v
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: DiskChanged, Int: v})
	}
}

func (c *Config) SetCAN(v int) {
	v = clamp100(v)
	c.mu.Lock()
	changed := c.can != v
	c.can = v
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: CanChanged, Int: v})
	}
}

// SetRobotCode sets the robot-code-present flag. Clearing it, per the
// invariant in spec.md §3, also clears RobotEnabled.
func (c *Config) SetRobotCode(v bool) {
	c.mu.Lock()
	changed := c.robotCode != v
	c.robotCode = v
	enabledChanged, enabledVal := c.enforceInvariantLocked()
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: RobotCodeChanged, Bool: v})
	}
	if enabledChanged {
		c.emit(Event{Kind: RobotEnabledChanged, Bool: enabledVal})
	}
}

func (c *Config) SetFMSComms(v bool) {
	c.mu.Lock()
	changed := c.fmsComms != v
	c.fmsComms = v
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: FmsCommsChanged, Bool: v})
	}
}

func (c *Config) SetRadioComms(v bool) {
	c.mu.Lock()
	changed := c.radioComms != v
	c.radioComms = v
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: RadioCommsChanged, Bool: v})
	}
}

// SetRobotComms sets the robot-comms flag. Clearing it, per the invariant,
// also clears RobotEnabled.
func (c *Config) SetRobotComms(v bool) {
	c.mu.Lock()
	changed := c.robotComms != v
	c.robotComms = v
	enabledChanged, enabledVal := c.enforceInvariantLocked()
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: RobotCommsChanged, Bool: v})
	}
	if enabledChanged {
		c.emit(Event{Kind: RobotEnabledChanged, Bool: enabledVal})
	}
}

// SetEmergencyStopped sets the e-stop flag. Setting it true also clears
// RobotEnabled per the invariant; it never auto-clears itself.
func (c *Config) SetEmergencyStopped(v bool) {
	c.mu.Lock()
	changed := c.emergencyStopped != v
	c.emergencyStopped = v
	enabledChanged, enabledVal := c.enforceInvariantLocked()
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: EStopChanged, Bool: v})
	}
	if enabledChanged {
		c.emit(Event{Kind: RobotEnabledChanged, Bool: enabledVal})
	}
}

// SetRobotEnabled requests the robot go enabled/disabled. Per spec.md §4.5,
// a request to enable is silently replaced with false unless
// robot_code && robot_comms && !emergency_stopped.
func (c *Config) SetRobotEnabled(v bool) {
	c.mu.Lock()
	if v && !c.canBeEnabledLocked() {
		v = false
	}
	changed := c.robotEnabled != v
	c.robotEnabled = v
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: RobotEnabledChanged, Bool: v})
	}
}

// enforceInvariantLocked clears RobotEnabled if the §3 invariant no longer
// holds. Must be called with c.mu held. Returns whether RobotEnabled
// changed and its new value.
func (c *Config) enforceInvariantLocked() (bool, bool) {
	if c.robotEnabled && !c.canBeEnabledLocked() {
		c.robotEnabled = false
		return true, false
	}
	return false, false
}

func (c *Config) SetMode(m ControlMode) {
	c.mu.Lock()
	changed := c.mode != m
	c.mode = m
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: ControlModeChanged, Mode: m})
	}
}

func (c *Config) SetAlliance(a Alliance) {
	c.mu.Lock()
	changed := c.alliance != a
	c.alliance = a
	alli, pos := c.alliance, c.position
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: StationChanged, Alli: alli, Pos: pos})
	}
}

func (c *Config) SetPosition(p Position) {
	c.mu.Lock()
	changed := c.position != p
	c.position = p
	alli, pos := c.alliance, c.position
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: StationChanged, Alli: alli, Pos: pos})
	}
}

func (c *Config) SetStatus(s string) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	c.mu.Unlock()
	if changed {
		c.emit(Event{Kind: StatusStringChanged, String: s})
	}
}

// AppendNetConsole appends to the netconsole outbound buffer drained by the
// dispatcher each tick (spec.md §4.9 send_netconsole_message).
func (c *Config) AppendNetConsole(p []byte) {
	c.mu.Lock()
	c.netConsoleOut.Append(p)
	c.mu.Unlock()
}

// drainNetConsole removes and returns the buffered outbound netconsole
// bytes; called by the dispatcher once per tick.
func (c *Config) drainNetConsole() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.netConsoleOut.Drain()
}

// --- Watchdog-expiry hooks (spec.md §4.5) -------------------------------
// These are the contract the dispatcher relies on to enter a safe state
// when a peer disappears. Each clears its peer's fields (the robot hook
// clears CAN alongside CPU/RAM/disk, see DESIGN.md) and emits events only
// for fields that actually changed.

func (c *Config) onFMSTimeout() {
	c.SetFMSComms(false)
}

func (c *Config) onRadioTimeout() {
	c.SetRadioComms(false)
}

func (c *Config) onRobotTimeout() {
	c.mu.Lock()
	var evs []Event

	if c.robotCode {
		c.robotCode = false
		evs = append(evs, Event{Kind: RobotCodeChanged, Bool: false})
	}
	if c.robotComms {
		c.robotComms = false
		evs = append(evs, Event{Kind: RobotCommsChanged, Bool: false})
	}
	if c.emergencyStopped {
		c.emergencyStopped = false
		evs = append(evs, Event{Kind: EStopChanged, Bool: false})
	}
	if c.robotEnabled {
		c.robotEnabled = false
		evs = append(evs, Event{Kind: RobotEnabledChanged, Bool: false})
	}
	if c.voltage != 0 {
		c.voltage = 0
		evs = append(evs, Event{Kind: VoltageChanged, Float: 0})
	}
	if c.cpu != 0 {
		c.cpu = 0
		evs = append(evs, Event{Kind: CpuChanged, Int: 0})
	}
	if c.ram != 0 {
		c.ram = 0
		evs = append(evs, Event{Kind: RamChanged, Int: 0})
	}
	if c.disk != 0 {
		c.disk = 0
		evs = append(evs, Event{Kind: DiskChanged, Int: 0})
	}
	if c.can != 0 {
		c.can = 0
		evs = append(evs, Event{Kind: CanChanged, Int: 0})
	}
	if c.mode != ModeTeleoperated {
		c.mode = ModeTeleoperated
		evs = append(evs, Event{Kind: ControlModeChanged, Mode: ModeTeleoperated})
	}
	c.mu.Unlock()

	for _, e := range evs {
		c.emit(e)
	}
}
