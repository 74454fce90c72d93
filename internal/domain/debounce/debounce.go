// Package debounce turns per-frame posture verdicts into stable transition events.
//
// The machine is a level-triggered edge detector: a key's state only changes when
// the verdict category differs from the last decided state. There is no dwell time.
package debounce

import (
	"sort"
	"sync"

	"github.com/okian/posture/internal/domain/posture"
	"github.com/okian/posture/internal/domain/skeleton"
)

// Kind identifies the direction of a transition.
type Kind int

// Transition kinds.
const (
	Entered Kind = iota + 1
	Exited
)

func (k Kind) String() string {
	switch k {
	case Entered:
		return "entered"
	case Exited:
		return "exited"
	default:
		return "none"
	}
}

// Transition is a state change for one key.
type Transition struct {
	Key  int
	Kind Kind
}

// State is a point-in-time view of one key.
type State struct {
	Key int
	On  bool
}

type entry struct {
	on bool
	// seq is the observation counter at the last Observe, used for eviction.
	seq uint64
}

// Machine holds one boolean per key, initially Off. Keys are subject slots or
// tracking IDs depending on how the caller derives them.
type Machine struct {
	mu       sync.RWMutex
	states   map[int]*entry
	capacity int
	seq      uint64
	// evicted holds implied exits of On keys dropped for capacity until the caller
	// takes them.
	evicted []Transition
}

// Option applies a configuration option to the Machine.
type Option func(*Machine)

// WithCapacity bounds the number of keys held at once. When a new key arrives at
// capacity, the least recently observed Off key is dropped; if every key is On,
// the least recently observed key is dropped and its exit is queued for
// TakeEvicted.
func WithCapacity(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// New creates a machine sized for the reference sensor's subject count.
func New(opts ...Option) *Machine {
	m := &Machine{capacity: skeleton.DefaultMaxSubjects}
	for _, opt := range opts {
		opt(m)
	}
	m.states = make(map[int]*entry, m.capacity)
	return m
}

// Observe applies one definitive verdict for key. Undetermined verdicts never
// transition. The returned bool is true when a transition fired for key; exits of
// keys evicted to make room are collected by TakeEvicted.
func (m *Machine) Observe(key int, outcome posture.Outcome) (Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	e, ok := m.states[key]
	if !ok {
		if len(m.states) >= m.capacity {
			m.evictOldest()
		}
		e = &entry{}
		m.states[key] = e
	}
	e.seq = m.seq

	switch {
	case outcome == posture.PostureA && !e.on:
		e.on = true
		return Transition{Key: key, Kind: Entered}, true
	case outcome == posture.PostureB && e.on:
		e.on = false
		return Transition{Key: key, Kind: Exited}, true
	}
	return Transition{}, false
}

// evictOldest must be called with m.mu held.
func (m *Machine) evictOldest() {
	victim, victimSeq, victimOn, found := 0, uint64(0), false, false
	for k, e := range m.states {
		better := !found ||
			(!e.on && victimOn) ||
			(e.on == victimOn && e.seq < victimSeq)
		if better {
			victim, victimSeq, victimOn, found = k, e.seq, e.on, true
		}
	}
	if !found {
		return
	}
	delete(m.states, victim)
	if victimOn {
		m.evicted = append(m.evicted, Transition{Key: victim, Kind: Exited})
	}
}

// TakeEvicted returns and clears the exits of On keys dropped for capacity, in
// eviction order.
func (m *Machine) TakeEvicted() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.evicted
	m.evicted = nil
	return out
}

// On reports the current state for key.
func (m *Machine) On(key int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.states[key]
	return ok && e.on
}

// Reset forgets key. If the key was On, the implied Exited transition is returned so
// the caller can keep downstream indicators consistent.
func (m *Machine) Reset(key int) (Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.states[key]
	if !ok {
		return Transition{}, false
	}
	delete(m.states, key)
	if e.on {
		return Transition{Key: key, Kind: Exited}, true
	}
	return Transition{}, false
}

// Retain resets every key not in keep and returns the implied Exited transitions,
// ordered by key.
func (m *Machine) Retain(keep map[int]struct{}) []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Transition
	for k, e := range m.states {
		if _, ok := keep[k]; ok {
			continue
		}
		delete(m.states, k)
		if e.on {
			out = append(out, Transition{Key: k, Kind: Exited})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ResetAll clears every key, returning Exited transitions for keys that were On.
func (m *Machine) ResetAll() []Transition {
	return m.Retain(nil)
}

// States returns a snapshot ordered by key.
func (m *Machine) States() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]State, 0, len(m.states))
	for k, e := range m.states {
		out = append(out, State{Key: k, On: e.on})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of keys currently held.
func (m *Machine) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
