package ds

import (
	"testing"
	"time"
)

func waitForOpen(e *endpoint, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		e.mu.RLock()
		opened := e.opened
		e.mu.RUnlock()
		if opened {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func waitForRemote(e *endpoint, want string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		e.mu.RLock()
		out := e.out
		e.mu.RUnlock()
		if out != nil && out.RemoteAddr().String() == want {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestEndpointDisabledIsNoOp(t *testing.T) {
	e := newEndpoint("", 0, 0, SocketDisabled, false)
	e.Open()
	if n := e.Send([]byte("x")); n != 0 {
		t.Errorf("Send() on disabled endpoint = %d, want 0", n)
	}
	if data := e.Read(); data != nil {
		t.Errorf("Read() on disabled endpoint = %v, want nil", data)
	}
	e.Close() // must not panic
}

func TestEndpointNotYetOpenIsNoOp(t *testing.T) {
	e := newEndpoint("127.0.0.1", 39511, 39512, SocketUDP, false)
	if n := e.Send([]byte("x")); n != 0 {
		t.Errorf("Send() before Open = %d, want 0", n)
	}
	if data := e.Read(); data != nil {
		t.Errorf("Read() before Open = %v, want nil", data)
	}
}

func TestEndpointLoopbackSendAndRead(t *testing.T) {
	const portA, portB = 39601, 39602
	epA := newEndpoint("127.0.0.1", portA, portB, SocketUDP, false)
	epB := newEndpoint("127.0.0.1", portB, portA, SocketUDP, false)
	defer epA.Close()
	defer epB.Close()

	epA.Open()
	epB.Open()
	if !waitForOpen(epA, 2*time.Second) || !waitForOpen(epB, 2*time.Second) {
		t.Fatal("endpoints did not finish opening")
	}

	epA.Send([]byte("hello"))

	deadline := time.Now().Add(2 * time.Second)
	var got []byte
	for time.Now().Before(deadline) {
		if got = epB.Read(); got != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if string(got) != "hello" {
		t.Fatalf("epB.Read() = %q, want %q", got, "hello")
	}
	if peer := epB.PeerAddr(); peer == "" {
		t.Errorf("PeerAddr() after a successful read = %q, want non-empty", peer)
	}
}

// TestEndpointChangeAddressRedialsOutputSocket guards the fix for
// ChangeAddress: it must actually redial the output socket, not just
// update the stored address field that nothing else reads.
func TestEndpointChangeAddressRedialsOutputSocket(t *testing.T) {
	e := newEndpoint("127.0.0.1", 39701, 39710, SocketUDP, false)
	defer e.Close()

	e.Open()
	if !waitForOpen(e, 2*time.Second) {
		t.Fatal("endpoint did not finish opening")
	}
	if !waitForRemote(e, "127.0.0.1:39710", 2*time.Second) {
		t.Fatalf("initial out socket never dialed 127.0.0.1:39710")
	}

	e.ChangeAddress("127.0.0.2")
	if !waitForRemote(e, "127.0.0.2:39710", 2*time.Second) {
		t.Fatalf("ChangeAddress did not redial the output socket to the new address")
	}
}

func TestEndpointChangeAddressSameValueIsNoOp(t *testing.T) {
	e := newEndpoint("127.0.0.1", 39702, 39711, SocketUDP, false)
	defer e.Close()
	e.Open()
	if !waitForOpen(e, 2*time.Second) {
		t.Fatal("endpoint did not finish opening")
	}

	e.mu.RLock()
	before := e.epoch
	e.mu.RUnlock()

	e.ChangeAddress("127.0.0.1") // unchanged

	e.mu.RLock()
	after := e.epoch
	e.mu.RUnlock()
	if before != after {
		t.Errorf("ChangeAddress with an unchanged address bumped epoch (%d -> %d), want no redial", before, after)
	}
}
