package components

// SlotKind says which slot array an assignment points into.
type SlotKind uint8

const (
	SlotNone SlotKind = iota
	SlotSpot
	SlotDestination
)

// String returns the slot kind name.
func (k SlotKind) String() string {
	switch k {
	case SlotSpot:
		return "spot"
	case SlotDestination:
		return "destination"
	default:
		return "none"
	}
}

// Assignment is an index handle into the population's spot or destination slots.
// At most one of the two is held at a time.
type Assignment struct {
	Kind  SlotKind
	Index int
}

// Unassigned is the zero assignment.
var Unassigned = Assignment{Kind: SlotNone, Index: -1}

// IsSpot reports whether the bogbog holds a spot.
func (a Assignment) IsSpot() bool {
	return a.Kind == SlotSpot
}

// IsDestination reports whether the bogbog holds a destination.
func (a Assignment) IsDestination() bool {
	return a.Kind == SlotDestination
}

// IsNone reports whether the bogbog holds no slot.
func (a Assignment) IsNone() bool {
	return a.Kind == SlotNone
}
