package hotkey

import "sync"

// State is the push-to-talk state.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// EventType distinguishes session start from session stop.
type EventType int

const (
	EventStart EventType = iota + 1
	EventStop
)

func (e EventType) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Event is emitted on every Idle/Armed -> Active and Active -> Idle/Armed transition.
type Event struct {
	Type EventType
}

// Machine tracks which combo keys are held. It enters Active exactly when
// every combo key is held and leaves it as soon as any one is released.
// Repeated press notifications for held keys are ignored.
//
// emit is called synchronously from Press/Release and must not block.
type Machine struct {
	mu    sync.Mutex
	combo Combo
	held  map[Key]struct{}
	state State
	emit  func(Event)
}

// NewMachine creates a state machine for combo.
func NewMachine(combo Combo, emit func(Event)) *Machine {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Machine{
		combo: combo,
		held:  make(map[Key]struct{}, combo.Len()),
		emit:  emit,
	}
}

// Press records a key press. Keys outside the combo are ignored.
func (m *Machine) Press(k Key) {
	if !m.combo.Contains(k) {
		return
	}

	m.mu.Lock()
	if _, already := m.held[k]; already {
		// OS key repeat
		m.mu.Unlock()
		return
	}
	m.held[k] = struct{}{}
	fire := m.transition()
	m.mu.Unlock()

	if fire != nil {
		m.emit(*fire)
	}
}

// Release records a key release. Keys outside the combo are ignored.
func (m *Machine) Release(k Key) {
	if !m.combo.Contains(k) {
		return
	}

	m.mu.Lock()
	if _, held := m.held[k]; !held {
		m.mu.Unlock()
		return
	}
	delete(m.held, k)
	fire := m.transition()
	m.mu.Unlock()

	if fire != nil {
		m.emit(*fire)
	}
}

// Reset forgets all held keys. A Stop is emitted if the machine was Active.
func (m *Machine) Reset() {
	m.mu.Lock()
	wasActive := m.state == StateActive
	m.held = make(map[Key]struct{}, m.combo.Len())
	m.state = StateIdle
	m.mu.Unlock()

	if wasActive {
		m.emit(Event{Type: EventStop})
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// transition recomputes the state from held keys; caller holds mu.
func (m *Machine) transition() *Event {
	next := StateIdle
	switch {
	case len(m.held) == m.combo.Len():
		next = StateActive
	case len(m.held) > 0:
		next = StateArmed
	}

	prev := m.state
	m.state = next

	switch {
	case prev != StateActive && next == StateActive:
		return &Event{Type: EventStart}
	case prev == StateActive && next != StateActive:
		return &Event{Type: EventStop}
	}
	return nil
}
