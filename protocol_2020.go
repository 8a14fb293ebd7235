package ds

// NewProtocol2020 returns the 2020 FRC wire protocol, the newest revision
// in the registry. The original source's `DS_GetProtocolFRC_2020` clones
// the 2016 protocol and swaps in robot-packet build/parse functions with
// extended CPU/RAM/disk/CAN telemetry; here every modern year already
// shares that parsing (newModernProtocol's parseExtended), so this factory
// differs from 2016 only in its name.
func NewProtocol2020() *Protocol {
	return newModernProtocol(modernProtocolOptions{
		name:             "2020",
		robotHostPattern: "roboRIO-%d-FRC.local",
	})
}
