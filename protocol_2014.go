package ds

import "hash/crc32"

// The 2014 revision is FIRST's last fixed-length, CRC-checked robot
// protocol before the 2015+ tagged-block family (spec.md §4.7). It has no
// radio socket at all (original source's `frc_2014.c` sets the radio
// socket to DS_SOCKET_INVALID) and its own packet shape entirely, so it is
// built directly rather than through newModernProtocol.
const (
	legacyPacketSize  = 1024
	legacyCRCOffset   = legacyPacketSize - 4
	legacyVersionOff  = 72
	legacyVersionSize = 8
	legacyJoystickOff = 8
	legacyMaxSticks   = 4
	legacyAxesPerJoy  = 6

	legacyCtrlTest       byte = 0x02
	legacyCtrlAutonomous byte = 0x10
	legacyCtrlEnabled    byte = 0x20
	legacyCtrlResync     byte = 0x04
	legacyCtrlFMSAttach  byte = 0x08
	legacyCtrlReboot     byte = 0x80
	legacyCtrlEStopOn    byte = 0x00
	legacyCtrlEStopOff   byte = 0x40 // set when NOT emergency stopped

	// A 0x37 in either voltage byte of the incoming robot packet means the
	// cRIO is running without user code (original source's read_robot_packet
	// sentinel check).
	legacyNoCodeSentinel byte = 0x37
)

// legacyDSVersion is the FRC Driver Station version string advertised at
// offset 72 of every outgoing robot packet, same as the one sent by 16.0.1.
const legacyDSVersion = "04011600"

// legacyCRC matches the stdlib IEEE table/seed. spec.md §9 leaves the
// roboRIO's exact polynomial and seed as an open question for 2014; this
// is the documented best-effort default (DESIGN.md).
func legacyCRC(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

func legacyStationAlliance(a Alliance) byte {
	if a == AllianceBlue {
		return 'B'
	}
	return 'R'
}

func legacyStationPosition(p Position) byte {
	return '1' + byte(p)
}

// NewProtocol2014 returns the 2014 FRC wire protocol.
func NewProtocol2014() *Protocol {
	return &Protocol{
		Name: "2014",

		FMSAddress:   func(s *protocolState, cfg *Config) string { return fmsFallbackAddress },
		RadioAddress: func(s *protocolState, cfg *Config) string { return "" },
		RobotAddress: func(s *protocolState, cfg *Config) string {
			return StaticIP(10, cfg.TeamNumber(), 2)
		},

		// original_source/src/protocols/frc_2014.c's create_fms_packet is
		// essentially empty (counter, a DS-version byte, control bits, team
		// number, voltage) next to the 1024-byte robot packet; this mirrors
		// that minimal shape rather than inventing a new one.
		BuildFMS: func(s *protocolState, cfg *Config) []byte {
			buf := newByteBuffer()
			buf.AppendByte(byte(s.fmsCounter >> 8))
			buf.AppendByte(byte(s.fmsCounter))
			buf.AppendByte(0x00) // DS version
			buf.AppendByte(fmsControlBits(cfg))
			team := cfg.TeamNumber()
			buf.AppendByte(byte(team >> 8))
			buf.AppendByte(byte(team))
			upper, lower := encodeVoltage(cfg.Voltage())
			buf.AppendByte(upper)
			buf.AppendByte(lower)
			s.fmsCounter++
			s.lifetimeFMSPackets++
			return buf.Bytes()
		},

		BuildRadio: func(s *protocolState, cfg *Config) []byte { return nil },

		BuildRobot: func(s *protocolState, cfg *Config, sticks []*Joystick) []byte {
			data := make([]byte, legacyPacketSize)

			var control byte
			switch cfg.Mode() {
			case ModeTest:
				control |= legacyCtrlTest
			case ModeAutonomous:
				control |= legacyCtrlAutonomous
			}
			if cfg.RobotEnabled() {
				control |= legacyCtrlEnabled
			}
			if !cfg.EmergencyStopped() {
				control |= legacyCtrlEStopOff
			}
			if cfg.FMSComms() {
				control |= legacyCtrlFMSAttach
			}
			if s.reboot {
				control |= legacyCtrlReboot
			}
			if s.restart {
				control |= legacyCtrlResync
			}

			data[0] = byte(s.robotCounter >> 8)
			data[1] = byte(s.robotCounter)
			data[2] = control
			data[3] = 0x00 // digital inputs, none exposed

			team := cfg.TeamNumber()
			data[4] = byte(team >> 8)
			data[5] = byte(team)

			// The original source wrote alliance then position to the same
			// byte 6, so position silently clobbered alliance on the wire.
			// Alliance and position each get their own byte here instead.
			data[6] = legacyStationAlliance(cfg.Alliance())
			data[7] = legacyStationPosition(cfg.Position())

			off := legacyJoystickOff
			for i := 0; i < legacyMaxSticks && off+legacyAxesPerJoy+2 <= legacyVersionOff; i++ {
				var j *Joystick
				if i < len(sticks) {
					j = sticks[i]
				}
				for a := 0; a < legacyAxesPerJoy; a++ {
					var v float64
					if j != nil && a < len(j.Axes) {
						v = j.Axes[a]
					}
					data[off] = encodeJoystickAxis(v)
					off++
				}
				var buttons uint16
				if j != nil {
					for bi, pressed := range j.Buttons {
						if pressed && bi < 16 {
							buttons |= 1 << uint(bi)
						}
					}
				}
				data[off] = byte(buttons >> 8)
				data[off+1] = byte(buttons)
				off += 2
			}

			copy(data[legacyVersionOff:legacyVersionOff+legacyVersionSize], legacyDSVersion)

			crc := legacyCRC(data[:legacyCRCOffset])
			data[legacyCRCOffset] = byte(crc >> 24)
			data[legacyCRCOffset+1] = byte(crc >> 16)
			data[legacyCRCOffset+2] = byte(crc >> 8)
			data[legacyCRCOffset+3] = byte(crc)

			s.robotCounter++
			s.lifetimeRobotPackets++
			return data
		},

		// original_source/src/protocols/frc_2014.c's read_fms_packet reads no
		// fields at all — it just accepts any non-empty packet as proof the
		// FMS is alive, which is what feeds the FMS watchdog here too.
		ParseFMS: func(s *protocolState, cfg *Config, data []byte) bool {
			if len(data) == 0 {
				return false
			}
			cfg.SetFMSComms(true)
			return true
		},
		ParseRadio: func(s *protocolState, cfg *Config, data []byte) bool { return false },

		// The incoming robot->DS packet leads with an opcode byte and the
		// battery voltage split into integer/decimal bytes (original source's
		// read_robot_packet): opcode 0x00 means the cRIO is emergency
		// stopped, and a 0x37 in either voltage byte is the no-user-code
		// sentinel. Nothing else in the frame is consumed.
		ParseRobot: func(s *protocolState, cfg *Config, data []byte) bool {
			if len(data) < legacyPacketSize {
				return false
			}

			cfg.SetRobotComms(true)
			opcode := data[0]
			integer := data[1]
			decimal := data[2]

			cfg.SetEmergencyStopped(opcode == legacyCtrlEStopOn)
			cfg.SetRobotCode(integer != legacyNoCodeSentinel && decimal != legacyNoCodeSentinel)

			return true
		},

		ResetFMS:   func(s *protocolState) {},
		ResetRadio: func(s *protocolState) {},
		ResetRobot: func(s *protocolState) {
			s.reboot = false
			s.restart = false
		},

		RebootRobot: func(s *protocolState) { s.reboot = true },
		RestartCode: func(s *protocolState) { s.restart = true },

		FMSSocket:   SocketDescriptor{InPort: 1120, OutPort: 1160, Kind: SocketUDP},
		RadioSocket: SocketDescriptor{Kind: SocketDisabled},
		RobotSocket: SocketDescriptor{InPort: 1150, OutPort: 1110, Kind: SocketUDP},
		NetConsoleSocket: SocketDescriptor{
			Address:   "255.255.255.255",
			InPort:    6666,
			OutPort:   6668,
			Kind:      SocketUDP,
			Broadcast: true,
		},

		FMSIntervalMs:   500,
		RadioIntervalMs: 0,
		RobotIntervalMs: 20,

		MaxJoysticks: legacyMaxSticks,
		MaxAxes:      legacyAxesPerJoy,
		MaxHats:      0,
		MaxButtons:   16,
		MaxVoltage:   13.0,
	}
}
