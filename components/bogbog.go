// Package components defines ECS components for a bogbog.
package components

// Bogbog bundles identity and lifecycle state.
type Bogbog struct {
	ID        uint32
	Alive     bool
	BirthTick int // tick counter value when spawned
	DeathTick int // tick counter value when killed, 0 while alive
}

// Wander tracks when a wandering bogbog picks its next destination.
// Times are on the externally supplied simulation clock, in seconds.
type Wander struct {
	NextReassign float64
	Scheduled    bool // false until the first destination is timed
	Arrived      bool // snapped onto the destination (instant assignment)
}

// Reset clears any pending movement and idle state.
func (w *Wander) Reset() {
	*w = Wander{}
}

// Attributes is the set of trait-gated attributes shown on a bogbog,
// one bit per trait index.
type Attributes struct {
	Mask uint64
}

// Has reports whether the attribute for trait index i is enabled.
func (a Attributes) Has(i int) bool {
	return a.Mask&(1<<uint(i)) != 0
}

// Set enables or disables the attribute for trait index i.
func (a *Attributes) Set(i int, enabled bool) {
	if enabled {
		a.Mask |= 1 << uint(i)
	} else {
		a.Mask &^= 1 << uint(i)
	}
}
