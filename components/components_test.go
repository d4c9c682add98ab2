package components

import "testing"

func TestAttributesSetHas(t *testing.T) {
	var a Attributes
	a.Set(0, true)
	a.Set(63, true)

	if !a.Has(0) || !a.Has(63) {
		t.Errorf("expected bits 0 and 63 set, mask=%b", a.Mask)
	}
	if a.Has(5) {
		t.Error("bit 5 should not be set")
	}

	a.Set(0, false)
	if a.Has(0) {
		t.Error("bit 0 should be cleared")
	}
}

func TestAssignmentKinds(t *testing.T) {
	if !Unassigned.IsNone() || Unassigned.IsSpot() || Unassigned.IsDestination() {
		t.Errorf("unexpected unassigned flags: %+v", Unassigned)
	}

	spot := Assignment{Kind: SlotSpot, Index: 2}
	if !spot.IsSpot() || spot.Kind.String() != "spot" {
		t.Errorf("unexpected spot assignment: %+v", spot)
	}
}

func TestWanderReset(t *testing.T) {
	w := Wander{NextReassign: 4, Scheduled: true, Arrived: true}
	w.Reset()
	if w != (Wander{}) {
		t.Errorf("Reset left state behind: %+v", w)
	}
}
