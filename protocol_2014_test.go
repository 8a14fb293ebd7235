package ds

import "testing"

func TestLegacyBuildRobotPacketSizeAndCRC(t *testing.T) {
	p := NewProtocol2014()
	q := newEventQueue()
	cfg := newConfig(q)
	cfg.SetTeamNumber(118)
	cfg.SetAlliance(AllianceBlue)
	cfg.SetPosition(Position2)

	data := p.BuildRobot(newProtocolState(), cfg, nil)
	if len(data) != legacyPacketSize {
		t.Fatalf("legacy BuildRobot length = %d, want %d", len(data), legacyPacketSize)
	}

	sum := legacyCRC(data[:legacyCRCOffset])
	want := uint32(data[legacyCRCOffset])<<24 | uint32(data[legacyCRCOffset+1])<<16 |
		uint32(data[legacyCRCOffset+2])<<8 | uint32(data[legacyCRCOffset+3])
	if sum != want {
		t.Fatalf("CRC mismatch: computed %#x, packet carries %#x", sum, want)
	}
}

func TestLegacyBuildRobotAllianceAndPositionDoNotClobber(t *testing.T) {
	p := NewProtocol2014()
	q := newEventQueue()
	cfg := newConfig(q)
	cfg.SetAlliance(AllianceBlue)
	cfg.SetPosition(Position3)

	data := p.BuildRobot(newProtocolState(), cfg, nil)
	if data[6] != 'B' {
		t.Errorf("alliance byte = %q, want 'B' (original source's byte-6 overwrite bug, fixed here by giving alliance and position separate bytes)", data[6])
	}
	if data[7] != '3' {
		t.Errorf("position byte = %q, want '3'", data[7])
	}
}

func TestLegacyBuildRobotHeaderAndVersionSignature(t *testing.T) {
	p := NewProtocol2014()
	q := newEventQueue()
	cfg := newConfig(q)
	cfg.SetTeamNumber(118)

	s := newProtocolState()
	p.BuildRobot(s, cfg, nil)
	data := p.BuildRobot(s, cfg, nil)

	if data[0] != 0 || data[1] != 1 {
		t.Errorf("packet counter bytes = %d/%d, want 0/1 on the second packet", data[0], data[1])
	}
	if got := int(data[4])<<8 | int(data[5]); got != 118 {
		t.Errorf("team number bytes = %d, want 118", got)
	}
	if got := string(data[legacyVersionOff : legacyVersionOff+legacyVersionSize]); got != legacyDSVersion {
		t.Errorf("DS version signature = %q, want %q", got, legacyDSVersion)
	}
}

func TestLegacyParseRobotEStopOpcode(t *testing.T) {
	p := NewProtocol2014()
	q := newEventQueue()
	cfg := newConfig(q)

	pkt := make([]byte, legacyPacketSize)
	pkt[0] = legacyCtrlEStopOff
	pkt[1], pkt[2] = 12, 50 // plausible voltage bytes, not the sentinel

	if !p.ParseRobot(newProtocolState(), cfg, pkt) {
		t.Fatalf("ParseRobot rejected a full-length robot status packet")
	}
	if !cfg.RobotComms() {
		t.Fatalf("ParseRobot did not set RobotComms")
	}
	if cfg.EmergencyStopped() {
		t.Errorf("EmergencyStopped() = true for an e-stop-off opcode")
	}
	if !cfg.RobotCode() {
		t.Errorf("RobotCode() = false for non-sentinel voltage bytes")
	}

	q2 := newEventQueue()
	cfg2 := newConfig(q2)
	pkt[0] = legacyCtrlEStopOn
	if !p.ParseRobot(newProtocolState(), cfg2, pkt) {
		t.Fatalf("ParseRobot rejected an e-stopped robot status packet")
	}
	if !cfg2.EmergencyStopped() {
		t.Errorf("EmergencyStopped() = false for the e-stop-on opcode")
	}
}

func TestLegacyParseRobotNoCodeSentinel(t *testing.T) {
	p := NewProtocol2014()
	q := newEventQueue()
	cfg := newConfig(q)

	pkt := make([]byte, legacyPacketSize)
	pkt[0] = legacyCtrlEStopOff
	pkt[1] = legacyNoCodeSentinel
	pkt[2] = legacyNoCodeSentinel

	if !p.ParseRobot(newProtocolState(), cfg, pkt) {
		t.Fatalf("ParseRobot rejected a full-length robot status packet")
	}
	if cfg.RobotCode() {
		t.Errorf("RobotCode() = true despite the 0x37 no-code sentinel in both voltage bytes")
	}
}

func TestLegacyParseRobotRejectsShortPacket(t *testing.T) {
	p := NewProtocol2014()
	q := newEventQueue()
	cfg := newConfig(q)
	if p.ParseRobot(newProtocolState(), cfg, make([]byte, 10)) {
		t.Fatalf("ParseRobot accepted a packet shorter than the fixed 1024-byte frame")
	}
}

func TestLegacyControlBitsRebootAndRestart(t *testing.T) {
	p := NewProtocol2014()
	q := newEventQueue()
	cfg := newConfig(q)
	s := newProtocolState()

	p.RebootRobot(s)
	data := p.BuildRobot(s, cfg, nil)
	if data[2]&legacyCtrlReboot == 0 {
		t.Errorf("reboot bit not set after RebootRobot")
	}
	p.ResetRobot(s)
	if s.reboot {
		t.Errorf("ResetRobot did not clear the reboot flag")
	}

	p.RestartCode(s)
	data = p.BuildRobot(s, cfg, nil)
	if data[2]&legacyCtrlResync == 0 {
		t.Errorf("resync bit not set after RestartCode")
	}
}

func TestLegacyHasNoRadioSocketButKeepsFMS(t *testing.T) {
	p := NewProtocol2014()
	if p.RadioSocket.Kind != SocketDisabled {
		t.Errorf("2014 radio socket = %v, want SocketDisabled", p.RadioSocket.Kind)
	}
	if p.FMSSocket.Kind != SocketUDP || p.FMSIntervalMs != 500 {
		t.Errorf("2014 FMS socket = %v @ %dms, want SocketUDP @ 500ms", p.FMSSocket.Kind, p.FMSIntervalMs)
	}
}

func TestLegacyStationByteEncoding(t *testing.T) {
	if got := legacyStationAlliance(AllianceRed); got != 'R' {
		t.Errorf("legacyStationAlliance(Red) = %q, want 'R'", got)
	}
	if got := legacyStationAlliance(AllianceBlue); got != 'B' {
		t.Errorf("legacyStationAlliance(Blue) = %q, want 'B'", got)
	}
	if got := legacyStationPosition(Position3); got != '3' {
		t.Errorf("legacyStationPosition(3) = %q, want '3'", got)
	}
}
