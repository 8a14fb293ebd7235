package ds

// NewProtocol2019 returns the 2019 FRC wire protocol. The roboRIO mDNS
// hostname's suffix case changed to lowercase "frc" in the original
// source's `frc_2019.c`; nothing else about the wire layout moved.
func NewProtocol2019() *Protocol {
	return newModernProtocol(modernProtocolOptions{
		name:             "2019",
		robotHostPattern: "roboRIO-%d-frc.local",
	})
}
