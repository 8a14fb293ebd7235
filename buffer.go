package ds

import "fmt"

// byteBuffer is a growable byte sequence used for packet assembly and for
// the netconsole outbound stream. It is not safe for concurrent use by
// itself; callers hold a lock around it (see Config.netConsoleOut).
type byteBuffer struct {
	data []byte
}

func newByteBuffer() *byteBuffer {
	return &byteBuffer{data: make([]byte, 0, 64)}
}

func (b *byteBuffer) Len() int {
	return len(b.data)
}

func (b *byteBuffer) Bytes() []byte {
	return b.data
}

func (b *byteBuffer) Reset() {
	b.data = b.data[:0]
}

func (b *byteBuffer) AppendByte(v byte) {
	b.data = append(b.data, v)
}

func (b *byteBuffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

func (b *byteBuffer) Appendf(format string, args ...interface{}) {
	b.data = append(b.data, []byte(fmt.Sprintf(format, args...))...)
}

// At returns the byte at index i, or 0 when out of range.
func (b *byteBuffer) At(i int) byte {
	if i < 0 || i >= len(b.data) {
		return 0
	}
	return b.data[i]
}

// SetAt overwrites the byte at index i. Out-of-range writes are dropped.
func (b *byteBuffer) SetAt(i int, v byte) {
	if i < 0 || i >= len(b.data) {
		return
	}
	b.data[i] = v
}

// Join appends each part separated by sep.
func (b *byteBuffer) Join(parts [][]byte, sep []byte) {
	for i, p := range parts {
		if i > 0 {
			b.data = append(b.data, sep...)
		}
		b.data = append(b.data, p...)
	}
}

// Drain returns and clears the buffered bytes.
func (b *byteBuffer) Drain() []byte {
	if len(b.data) == 0 {
		return nil
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	b.data = b.data[:0]
	return out
}

// StaticIP formats the canonical FRC static-IP address for a team number:
// net.(team/100).(team%100).host, e.g. StaticIP(10, 3794, 2) == "10.37.94.2".
func StaticIP(net_, team, host int) string {
	return fmt.Sprintf("%d.%d.%d.%d", net_, team/100, team%100, host)
}
