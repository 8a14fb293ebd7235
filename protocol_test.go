package ds

import "testing"

func TestControlModeBitsRoundTrip(t *testing.T) {
	for _, m := range []ControlMode{ModeTeleoperated, ModeTest, ModeAutonomous} {
		if got := bitsToControlMode(controlModeBits(m)); got != m {
			t.Errorf("bitsToControlMode(controlModeBits(%v)) = %v, want %v", m, got, m)
		}
	}
}

func TestVoltageRoundTripWithinOneStep(t *testing.T) {
	// decode(encode(v)) must land within one encoding step of v (spec.md
	// Testable Property 8); the encoding is lossy by design, not a literal
	// bit-exact round trip.
	tests := []float64{0, 1.0, 7.5, 12.0, 12.99, 13.0}
	for _, v := range tests {
		upper, lower := encodeVoltage(v)
		got := decodeVoltage(upper, lower)
		diff := got - v
		if diff < 0 {
			diff = -diff
		}
		if diff > 1.0/255.0+1e-9 {
			t.Errorf("decodeVoltage(encodeVoltage(%v)) = %v, diff %v exceeds one step", v, got, diff)
		}
	}
}

func TestEncodeVoltageClampsNegative(t *testing.T) {
	upper, lower := encodeVoltage(-5)
	if upper != 0 || lower != 0 {
		t.Errorf("encodeVoltage(-5) = (%d, %d), want (0, 0)", upper, lower)
	}
}

func TestRequestBytePriorityOrder(t *testing.T) {
	s := newProtocolState()
	if got := requestByte(s, false); got != reqDisconnected {
		t.Errorf("requestByte with no robot comms = %#x, want %#x", got, reqDisconnected)
	}

	s.reboot = true
	s.restart = true
	if got := requestByte(s, true); got != reqReboot {
		t.Errorf("requestByte with both reboot and restart set = %#x, want reqReboot %#x", got, reqReboot)
	}

	s.reboot = false
	if got := requestByte(s, true); got != reqRestartCode {
		t.Errorf("requestByte with only restart set = %#x, want reqRestartCode %#x", got, reqRestartCode)
	}

	s.restart = false
	if got := requestByte(s, true); got != reqNormal {
		t.Errorf("requestByte with neither flag set = %#x, want reqNormal %#x", got, reqNormal)
	}
}

func TestStationByteHelperMatchesStation(t *testing.T) {
	if got, want := stationByte(AllianceBlue, Position2), Station(AllianceBlue, Position2); got != want {
		t.Errorf("stationByte() = %d, want %d", got, want)
	}
}

func TestEncodeJoystickAxisClampsAndRounds(t *testing.T) {
	tests := []struct {
		in   float64
		want byte
	}{
		{0, 0},
		{1.0, 127},
		{-1.0, func() byte { v := int8(-127); return byte(v) }()},
		{2.0, 127},                                                // clamped to 1.0 before scaling
		{-2.0, func() byte { v := int8(-127); return byte(v) }()}, // clamped to -1.0 before scaling
	}
	for _, tt := range tests {
		if got := encodeJoystickAxis(tt.in); got != tt.want {
			t.Errorf("encodeJoystickAxis(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAppendJoystickBlockSizeByte(t *testing.T) {
	buf := newByteBuffer()
	j := &Joystick{
		Axes:    []float64{0, 0.5},
		Buttons: []bool{true, false, true},
		Hats:    []int{90},
	}
	appendJoystickBlock(buf, []*Joystick{j})

	data := buf.Bytes()
	if len(data) == 0 {
		t.Fatalf("appendJoystickBlock wrote no bytes")
	}
	size := int(data[0])
	if size != len(data) {
		t.Errorf("joystick block size byte = %d, want %d (the size byte counts the whole block, itself included)", size, len(data))
	}
	if data[1] != tagJoystick {
		t.Errorf("joystick block tag = %#x, want %#x", data[1], tagJoystick)
	}
}

func TestFMSControlBitsReflectsConfig(t *testing.T) {
	q := newEventQueue()
	cfg := newConfig(q)
	cfg.SetMode(ModeAutonomous)
	cfg.SetRobotCode(true)
	cfg.SetRobotComms(true)
	cfg.SetRobotEnabled(true)

	bits := fmsControlBits(cfg)
	if bits&ctrlAutonomous == 0 {
		t.Errorf("fmsControlBits did not set the autonomous bit")
	}
	if bits&ctrlEnabled == 0 {
		t.Errorf("fmsControlBits did not set the enabled bit")
	}
	if bits&fmsRobotComms == 0 {
		t.Errorf("fmsControlBits did not set the robot-comms bit")
	}
}

func TestRobotControlBitsReflectsConfig(t *testing.T) {
	q := newEventQueue()
	cfg := newConfig(q)
	cfg.SetFMSComms(true)
	cfg.SetEmergencyStopped(true)

	bits := robotControlBits(cfg)
	if bits&ctrlFMSConnected == 0 {
		t.Errorf("robotControlBits did not set the FMS-connected bit")
	}
	if bits&ctrlEmergencyStop == 0 {
		t.Errorf("robotControlBits did not set the emergency-stop bit")
	}
}

func TestNewProtocolStateStartsZeroed(t *testing.T) {
	s := newProtocolState()
	if s.robotCounter != 0 || s.fmsCounter != 0 || s.reboot || s.restart || s.sendTime {
		t.Fatalf("newProtocolState() did not return a zero-valued state: %+v", s)
	}
}
