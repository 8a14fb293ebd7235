package ds

// NewProtocol2018 returns the 2018 FRC wire protocol. The original source's
// `DS_GetProtocolFRC_2018` factory clones the 2016 protocol and changes
// nothing but its name; this module does the same.
func NewProtocol2018() *Protocol {
	return newModernProtocol(modernProtocolOptions{
		name:             "2018",
		robotHostPattern: "roboRIO-%d-FRC.local",
	})
}
