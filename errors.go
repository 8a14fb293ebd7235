package ds

// Error wraps the small set of failures that cross the public boundary:
// an unknown protocol year (Open, ConfigureProtocol) and ConfigureProtocol
// on a client that is not open. All other failure modes — transient I/O,
// malformed packets, socket/queue/timer use before they are initialized —
// are handled internally and surfaced only via events, never via error
// return. The type follows Daedaluz-goserial's Error/Unwrap pattern.
type Error struct {
	msg string
	err error
}

func (e *Error) Error() string {
	if e.msg != "" {
		if e.err != nil {
			return e.msg + ": " + e.err.Error()
		}
		return e.msg
	}
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e *Error) Unwrap() error {
	return e.err
}

func wrapErr(msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{msg: msg, err: err}
}
