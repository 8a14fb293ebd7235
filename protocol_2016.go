package ds

// NewProtocol2016 returns the 2016 FRC wire protocol: same packet layout as
// 2015, but the roboRIO mDNS hostname gained an "-FRC" suffix and the
// netconsole input socket was dropped (original source's `frc_2016.c`).
func NewProtocol2016() *Protocol {
	return newModernProtocol(modernProtocolOptions{
		name:             "2016",
		robotHostPattern: "roboRIO-%d-FRC.local",
	})
}
