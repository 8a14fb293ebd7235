package ds

import (
	"fmt"
	"math"
	"time"
)

// fmsFallbackAddress is used until an FMS packet reveals the real origin
// address (spec.md §4.7: "FMS uses a fallback constant until the FMS
// packet reveals its origin"). The original source's DS_FallBackAddress
// constant is not among the filtered original_source/ files, so this
// spec treats the fallback as the empty string — socket.go's Open falls
// back to the wildcard address on an empty/unresolvable host, which is
// the same behavior a non-empty placeholder constant would produce.
const fmsFallbackAddress = ""

// modernProtocolOptions configures the handful of differences between the
// 2015/2016/2018/2019/2020 wire protocols: the robot hostname pattern and
// whether the netconsole input port is wired up (2015 only, per spec.md
// §4.7's port table).
type modernProtocolOptions struct {
	name             string
	robotHostPattern string // fmt pattern taking team number
	netConsoleInPort int    // 0: no listener on 6666 (input binds an OS-assigned port); output to 6668 stays on
	now              func() (ms uint32, sec, min, hour, yday, mon, year int, tzName string)
}

// newModernProtocol builds the shared 2015-2020 wire protocol. Every
// concrete year (protocol_2015.go .. protocol_2020.go) calls this with its
// own addressing/port deltas; the packet layouts themselves are identical
// across the family per spec.md §4.7's "salient contracts" framing.
func newModernProtocol(opts modernProtocolOptions) *Protocol {
	if opts.now == nil {
		opts.now = defaultClock
	}

	p := &Protocol{
		Name: opts.name,

		FMSAddress: func(s *protocolState, cfg *Config) string {
			if s.fmsAddrSeen != "" {
				return s.fmsAddrSeen
			}
			return fmsFallbackAddress
		},
		RadioAddress: func(s *protocolState, cfg *Config) string {
			return StaticIP(10, cfg.TeamNumber(), 1)
		},
		RobotAddress: func(s *protocolState, cfg *Config) string {
			return fmt.Sprintf(opts.robotHostPattern, cfg.TeamNumber())
		},

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

		BuildRadio: func(s *protocolState, cfg *Config) []byte {
			return nil // the modern protocols never send a radio packet
		},

		BuildRobot: func(s *protocolState, cfg *Config, sticks []*Joystick) []byte {
			buf := newByteBuffer()
			buf.AppendByte(byte(s.robotCounter >> 8))
			buf.AppendByte(byte(s.robotCounter))
			buf.AppendByte(tagGeneral)
			buf.AppendByte(robotControlBits(cfg))
			buf.AppendByte(requestByte(s, cfg.RobotComms()))
			buf.AppendByte(stationByte(cfg.Alliance(), cfg.Position()))

			if s.sendTime {
				ms, sec, min, hour, yday, mon, year, tz := opts.now()
				appendTimezoneBlock(buf, ms, sec, min, hour, yday, mon, year, tz)
			} else if s.robotCounter > 5 {
				appendJoystickBlock(buf, sticks)
			}

			s.robotCounter++
			s.lifetimeRobotPackets++
			return buf.Bytes()
		},

		ParseFMS: func(s *protocolState, cfg *Config, data []byte) bool {
			if len(data) < 22 {
				return false
			}
			cfg.SetFMSComms(true)
			control := data[3]
			station := data[5]
			cfg.SetMode(bitsToControlMode(control))
			cfg.SetRobotEnabled(control&ctrlEnabled != 0)
			alliance, position := StationToAlliancePosition(station)
			cfg.SetAlliance(alliance)
			cfg.SetPosition(position)
			return true
		},

		ParseRadio: func(s *protocolState, cfg *Config, data []byte) bool {
			return false // modern protocols exchange no radio payload
		},

		ParseRobot: func(s *protocolState, cfg *Config, data []byte) bool {
			if len(data) < 7 {
				return false
			}
			// robot_comms is raised first so a successful parse's cascade of
			// field changes (code, voltage, enabled) is observed by the host
			// strictly after the comms-up event that explains them.
			cfg.SetRobotComms(true)
			control := data[3]
			status := data[4]
			upper, lower := data[5], data[6]

			cfg.SetEmergencyStopped(control&ctrlEmergencyStop != 0)
			cfg.SetRobotCode(status&0x20 != 0)
			cfg.SetVoltage(decodeVoltage(upper, lower))

			if len(data) > 7 {
				request := data[7]
				s.sendTime = request == 0x01
			}

			if len(data) > 9 {
				parseExtended(cfg, data, 8)
			}

			return true
		},

		ResetFMS:   func(s *protocolState) {},
		ResetRadio: func(s *protocolState) {},
		ResetRobot: func(s *protocolState) {
			s.reboot = false
			s.restart = false
			s.sendTime = false
		},

		RebootRobot: func(s *protocolState) { s.reboot = true },
		RestartCode: func(s *protocolState) { s.restart = true },

		FMSSocket:   SocketDescriptor{InPort: 1120, OutPort: 1160, Kind: SocketUDP},
		RadioSocket: SocketDescriptor{InPort: 0, OutPort: 0, Kind: SocketDisabled},
		RobotSocket: SocketDescriptor{InPort: 1150, OutPort: 1110, Kind: SocketUDP},
		NetConsoleSocket: SocketDescriptor{
			Address:   "255.255.255.255",
			InPort:    opts.netConsoleInPort,
			OutPort:   6668,
			Kind:      SocketUDP,
			Broadcast: true,
		},

		FMSIntervalMs:   500,
		RadioIntervalMs: 0,
		RobotIntervalMs: 20,

		MaxJoysticks: 6,
		MaxAxes:      8,
		MaxHats:      1,
		MaxButtons:   16,
		MaxVoltage:   13.0,
	}

	return p
}

// parseExtended reads one CAN/CPU/RAM/Disk extended-info block starting at
// the size byte offset and updates the configuration store accordingly
// (spec.md §4.7). The CPU formula's per-core byte layout is not pinned
// down exactly by spec.md or by the (inconsistent, overlapping-window)
// original_source/ draft; this implementation reads one 16-byte block per
// core (four 4-byte floats, one per quarter), the two blocks not
// overlapping — a deliberate interpretation documented in DESIGN.md.
func parseExtended(cfg *Config, data []byte, offset int) {
	if offset+1 >= len(data) {
		return
	}
	tag := data[offset+1]
	switch tag {
	case tagCAN:
		if offset+6 <= len(data) {
			v := beFloat32(data[offset+2:])
			cfg.SetCAN(int(v))
		}
	case tagCPU:
		if offset+38 <= len(data) {
			var total float64
			for core := 0; core < 2; core++ {
				base := offset + 6 + core*16
				crit := float64(beFloat32(data[base:]))
				above := float64(beFloat32(data[base+4:]))
				norm := float64(beFloat32(data[base+8:]))
				low := float64(beFloat32(data[base+12:]))
				denom := crit + above + norm + low
				if denom == 0 {
					continue
				}
				total += (crit + above*0.90 + norm*0.75 + low*0.25) / denom
			}
			cfg.SetCPU(int((total / 2) * 100))
		}
	case tagRAM:
		if offset+10 <= len(data) {
			remaining := float64(beFloat32(data[offset+6:]))
			cfg.SetRAM(int((maxRAMBytes - remaining) / maxRAMBytes * 100))
		}
	case tagDisk:
		if offset+6 <= len(data) {
			remaining := float64(beFloat32(data[offset+2:]))
			cfg.SetDisk(int((maxDiskBytes - remaining) / maxDiskBytes * 100))
		}
	}
}

func beFloat32(b []byte) float32 {
	if len(b) < 4 {
		return 0
	}
	bits := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return math.Float32frombits(bits)
}

// defaultClock reports the local wall time split into the fields the
// timezone packet block needs (spec.md §4.7). Exposed as the options'
// default so tests can substitute a fixed clock.
func defaultClock() (ms uint32, sec, min, hour, yday, mon, year int, tzName string) {
	now := time.Now()
	name, _ := now.Zone()
	return uint32(now.Nanosecond() / 1e6), now.Second(), now.Minute(), now.Hour(),
		now.YearDay(), int(now.Month()), now.Year() - 1900, name
}
