package ds

// SocketDescriptor is one of a Protocol's four socket endpoints (FMS,
// radio, robot, netconsole): address plus ports and kind (spec.md §3).
type SocketDescriptor struct {
	Address   string
	InPort    int
	OutPort   int
	Kind      socketKind
	Broadcast bool
}

// Protocol is the per-year vtable described in spec.md §3 and §4.7: a
// value type built from closures rather than an interface with five
// implementations, so a factory can close over its own counters and
// one-shot flags (design note in spec.md §9: "Function-pointer vtables
// per protocol: model as ... a struct of closures").
type Protocol struct {
	Name string

	// Addressing closures are recomputed on demand (team number may
	// change) — spec.md §4.7.
	FMSAddress   func(s *protocolState, cfg *Config) string
	RadioAddress func(s *protocolState, cfg *Config) string
	RobotAddress func(s *protocolState, cfg *Config) string

	// Packet build closures are pure over (current config, current
	// joystick snapshot) plus the protocol's own mutable counters/flags,
	// captured in protocolState (spec.md §9).
	BuildFMS   func(s *protocolState, cfg *Config) []byte
	BuildRadio func(s *protocolState, cfg *Config) []byte
	BuildRobot func(s *protocolState, cfg *Config, sticks []*Joystick) []byte

	// Packet parse closures return true on a well-formed packet.
	ParseFMS   func(s *protocolState, cfg *Config, data []byte) bool
	ParseRadio func(s *protocolState, cfg *Config, data []byte) bool
	ParseRobot func(s *protocolState, cfg *Config, data []byte) bool

	// Reset closures clear one-shot request flags; called by the
	// dispatcher after a watchdog-expiry hook fires for that peer.
	ResetFMS   func(s *protocolState)
	ResetRadio func(s *protocolState)
	ResetRobot func(s *protocolState)

	RebootRobot func(s *protocolState)
	RestartCode func(s *protocolState)

	FMSSocket        SocketDescriptor
	RadioSocket      SocketDescriptor
	RobotSocket      SocketDescriptor
	NetConsoleSocket SocketDescriptor

	FMSIntervalMs   int
	RadioIntervalMs int
	RobotIntervalMs int

	MaxJoysticks int
	MaxAxes      int
	MaxHats      int
	MaxButtons   int
	MaxVoltage   float64
}

// protocolState holds the mutable, protocol-instance-scoped state that the
// spec's "pure over (config, joystick snapshot)" build/parse closures
// still need: wire packet counters, one-shot reboot/restart flags, and
// small parse-derived flags (e.g. "send timezone next packet"). It is
// reset to zero whenever a protocol is (re)installed (spec.md §4.7,
// Testable Property 4: "on protocol reinstall it resets to zero").
type protocolState struct {
	robotCounter uint16
	fmsCounter   uint16

	lifetimeRobotPackets uint64
	lifetimeFMSPackets   uint64

	reboot      bool
	restart     bool
	sendTime    bool
	fmsAddrSeen string // learned FMS origin address, once a packet arrives
}

func newProtocolState() *protocolState {
	return &protocolState{}
}

// --- Shared wire-format helpers, common to the 2015-2020 family --------

const (
	ctrlTest          byte = 0x01
	ctrlAutonomous    byte = 0x02
	ctrlTeleoperated  byte = 0x00
	ctrlEnabled       byte = 0x04
	ctrlFMSConnected  byte = 0x08
	ctrlEmergencyStop byte = 0x80
)

const (
	reqNormal       byte = 0x80
	reqReboot       byte = 0x08
	reqRestartCode  byte = 0x04
	reqDisconnected byte = 0x00
)

const (
	fmsRadioPing  byte = 0x10
	fmsRobotPing  byte = 0x08
	fmsRobotComms byte = 0x20
)

const (
	tagGeneral  byte = 0x01
	tagJoystick byte = 0x0c
	tagDate     byte = 0x0f
	tagTimezone byte = 0x10
	tagCAN      byte = 0x0e
	tagCPU      byte = 0x05
	tagRAM      byte = 0x06
	tagDisk     byte = 0x04
)

const (
	maxDiskBytes = 512 * 1000 * 1000
	maxRAMBytes  = 256 * 1000 * 1000
)

// encodeVoltage splits a float voltage into the wire's two-byte
// representation. lower preserves an asymmetric round-trip vs decode by
// design (spec.md §4.7, Testable Property 8).
func encodeVoltage(v float64) (upper, lower byte) {
	if v < 0 {
		v = 0
	}
	whole := float64(int(v))
	frac := v - whole
	u := int(whole)
	l := int(frac * 256)
	if u > 255 {
		u = 255
	}
	if l > 255 {
		l = 255
	}
	if l < 0 {
		l = 0
	}
	return byte(u), byte(l)
}

func decodeVoltage(upper, lower byte) float64 {
	return float64(upper) + float64(lower)/255.0
}

func controlModeBits(m ControlMode) byte {
	switch m {
	case ModeTest:
		return ctrlTest
	case ModeAutonomous:
		return ctrlAutonomous
	default:
		return ctrlTeleoperated
	}
}

func bitsToControlMode(b byte) ControlMode {
	if b&ctrlTest != 0 {
		return ModeTest
	}
	if b&ctrlAutonomous != 0 {
		return ModeAutonomous
	}
	return ModeTeleoperated
}

// encodeJoystickAxis rounds a -1..1 float to a signed wire byte, f*127
// rounded toward zero with clamp (spec.md §4.7).
func encodeJoystickAxis(f float64) byte {
	if f > 1 {
		f = 1
	}
	if f < -1 {
		f = -1
	}
	v := int(f * 127) // truncation toward zero
	if v > 127 {
		v = 127
	}
	if v < -128 {
		v = -128
	}
	return byte(int8(v))
}

// appendJoystickBlock appends the modern (2015-2020) joystick block for
// every attached joystick: size byte, tag 0x0c, axes, buttons (as a 2-byte
// bitfield), hats (each a 2-byte angle) — spec.md §4.7.
func appendJoystickBlock(buf *byteBuffer, sticks []*Joystick) {
	for _, j := range sticks {
		size := byte(1 + 1 + (1 + len(j.Axes)) + (1 + 2) + (1 + 2*len(j.Hats)))
		buf.AppendByte(size)
		buf.AppendByte(tagJoystick)

		buf.AppendByte(byte(len(j.Axes)))
		for _, a := range j.Axes {
			buf.AppendByte(encodeJoystickAxis(a))
		}

		var buttons uint16
		for i, pressed := range j.Buttons {
			if pressed {
				buttons |= 1 << uint(i)
			}
		}
		buf.AppendByte(byte(len(j.Buttons)))
		buf.AppendByte(byte(buttons >> 8))
		buf.AppendByte(byte(buttons))

		buf.AppendByte(byte(len(j.Hats)))
		for _, h := range j.Hats {
			buf.AppendByte(byte(uint16(h) >> 8))
			buf.AppendByte(byte(uint16(h)))
		}
	}
}

// appendTimezoneBlock appends the tag-0x0f millisecond+date block followed
// by the tag-0x10 timezone-name block (spec.md §4.7). now/tz are passed in
// so packet construction stays a pure function of its inputs in tests.
func appendTimezoneBlock(buf *byteBuffer, ms uint32, sec, min, hour, yday, mon, year int, tzName string) {
	buf.AppendByte(tagDate)
	buf.AppendByte(byte(ms >> 24))
	buf.AppendByte(byte(ms >> 16))
	buf.AppendByte(byte(ms >> 8))
	buf.AppendByte(byte(ms))
	buf.AppendByte(byte(sec))
	buf.AppendByte(byte(min))
	buf.AppendByte(byte(hour))
	buf.AppendByte(byte(yday))
	buf.AppendByte(byte(mon))
	buf.AppendByte(byte(year))
	buf.AppendByte(tagTimezone)
	buf.AppendByte(byte(len(tzName)))
	buf.Append([]byte(tzName))
}

func stationByte(a Alliance, p Position) byte {
	return Station(a, p)
}

func requestByte(s *protocolState, robotComms bool) byte {
	if !robotComms {
		return reqDisconnected
	}
	if s.reboot {
		return reqReboot
	}
	if s.restart {
		return reqRestartCode
	}
	return reqNormal
}

func fmsControlBits(cfg *Config) byte {
	var code byte
	code |= controlModeBits(cfg.Mode())
	if cfg.EmergencyStopped() {
		code |= ctrlEmergencyStop
	}
	if cfg.RobotEnabled() {
		code |= ctrlEnabled
	}
	if cfg.RadioComms() {
		code |= fmsRadioPing
	}
	if cfg.RobotComms() {
		code |= fmsRobotComms | fmsRobotPing
	}
	return code
}

func robotControlBits(cfg *Config) byte {
	var code byte
	code |= controlModeBits(cfg.Mode())
	if cfg.FMSComms() {
		code |= ctrlFMSConnected
	}
	if cfg.EmergencyStopped() {
		code |= ctrlEmergencyStop
	}
	if cfg.RobotEnabled() {
		code |= ctrlEnabled
	}
	return code
}
