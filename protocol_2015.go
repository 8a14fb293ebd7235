package ds

// NewProtocol2015 returns the 2015 FRC wire protocol. It is the first
// member of the shared modern family (spec.md §4.7) and the only one that
// wires up a netconsole input socket on port 6666, per the original
// source's `frc_2015.c` socket table.
func NewProtocol2015() *Protocol {
	return newModernProtocol(modernProtocolOptions{
		name:             "2015",
		robotHostPattern: "roboRIO-%d.local",
		netConsoleInPort: 6666,
	})
}
