package ds

import "sync"

// Joystick is a logical joystick: fixed-size axis/hat/button arrays,
// zero-initialized (spec.md §3).
type Joystick struct {
	NumAxes    int
	NumHats    int
	NumButtons int
	Axes       []float64 // -1..1
	Hats       []int     // angles, 0 = centered
	Buttons    []bool
}

func newJoystick(axes, hats, buttons int) *Joystick {
	return &Joystick{
		NumAxes:    axes,
		NumHats:    hats,
		NumButtons: buttons,
		Axes:       make([]float64, axes),
		Hats:       make([]int, hats),
		Buttons:    make([]bool, buttons),
	}
}

// joystickRegistry is the indexed table of logical joysticks (C6). Writers
// (add/set) run on the host goroutine; the dispatcher reads it when
// building outgoing robot packets. A single mutex keeps table size and
// each joystick's arrays published together so the dispatcher never
// observes a partially-added joystick (spec.md §5).
type joystickRegistry struct {
	mu     sync.RWMutex
	sticks []*Joystick
	events *eventQueue
}

func newJoystickRegistry(q *eventQueue) *joystickRegistry {
	return &joystickRegistry{events: q}
}

func (r *joystickRegistry) emit(count int) {
	if r.events != nil {
		r.events.push(Event{Kind: JoystickCountChanged, Int: count})
	}
}

func (r *joystickRegistry) Add(axes, hats, buttons int) int {
	r.mu.Lock()
	r.sticks = append(r.sticks, newJoystick(axes, hats, buttons))
	count := len(r.sticks)
	r.mu.Unlock()
	r.emit(count)
	return count - 1
}

func (r *joystickRegistry) Reset() {
	r.mu.Lock()
	r.sticks = nil
	r.mu.Unlock()
	r.emit(0)
}

func (r *joystickRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sticks)
}

// snapshot returns a defensive, independently-owned copy of joystick index
// idx, or nil if out of range. The dispatcher uses this when building a
// packet so the build is pure over the captured state (spec.md §9: "packet
// build/parse functions are pure over (current config, current joystick
// snapshot, incoming bytes)").
func (r *joystickRegistry) snapshot(idx int) *Joystick {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || idx >= len(r.sticks) {
		return nil
	}
	j := r.sticks[idx]
	out := &Joystick{
		NumAxes:    j.NumAxes,
		NumHats:    j.NumHats,
		NumButtons: j.NumButtons,
		Axes:       append([]float64(nil), j.Axes...),
		Hats:       append([]int(nil), j.Hats...),
		Buttons:    append([]bool(nil), j.Buttons...),
	}
	return out
}

func (r *joystickRegistry) snapshotAll() []*Joystick {
	r.mu.RLock()
	n := len(r.sticks)
	r.mu.RUnlock()
	out := make([]*Joystick, 0, n)
	for i := 0; i < n; i++ {
		if j := r.snapshot(i); j != nil {
			out = append(out, j)
		}
	}
	return out
}

func (r *joystickRegistry) SetAxis(idx, axis int, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || idx >= len(r.sticks) {
		return
	}
	j := r.sticks[idx]
	if axis < 0 || axis >= len(j.Axes) {
		return
	}
	j.Axes[axis] = v
}

func (r *joystickRegistry) SetHat(idx, hat, angle int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || idx >= len(r.sticks) {
		return
	}
	j := r.sticks[idx]
	if hat < 0 || hat >= len(j.Hats) {
		return
	}
	j.Hats[hat] = angle
}

func (r *joystickRegistry) SetButton(idx, button int, pressed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || idx >= len(r.sticks) {
		return
	}
	j := r.sticks[idx]
	if button < 0 || button >= len(j.Buttons) {
		return
	}
	j.Buttons[button] = pressed
}

// GetAxis/GetHat/GetButton return neutral values regardless of stored
// content when robot_enabled is false — a safety property, not merely a
// display choice (spec.md §3) — and zero for any out-of-range query.
func (r *joystickRegistry) GetAxis(idx, axis int, enabled bool) float64 {
	if !enabled {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || idx >= len(r.sticks) {
		return 0
	}
	j := r.sticks[idx]
	if axis < 0 || axis >= len(j.Axes) {
		return 0
	}
	return j.Axes[axis]
}

func (r *joystickRegistry) GetHat(idx, hat int, enabled bool) int {
	if !enabled {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || idx >= len(r.sticks) {
		return 0
	}
	j := r.sticks[idx]
	if hat < 0 || hat >= len(j.Hats) {
		return 0
	}
	return j.Hats[hat]
}

func (r *joystickRegistry) GetButton(idx, button int, enabled bool) bool {
	if !enabled {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || idx >= len(r.sticks) {
		return false
	}
	j := r.sticks[idx]
	if button < 0 || button >= len(j.Buttons) {
		return false
	}
	return j.Buttons[button]
}
