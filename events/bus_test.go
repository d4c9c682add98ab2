package events

import "testing"

type ping struct{ N int }
type pong struct{ S string }

func TestPublishDeliversToMatchingType(t *testing.T) {
	bus := NewBus()

	var pings []int
	var pongs int
	Subscribe(bus, func(e ping) { pings = append(pings, e.N) })
	Subscribe(bus, func(pong) { pongs++ })

	Publish(bus, ping{N: 1})
	Publish(bus, ping{N: 2})

	if len(pings) != 2 || pings[0] != 1 || pings[1] != 2 {
		t.Errorf("unexpected pings: %v", pings)
	}
	if pongs != 0 {
		t.Errorf("pong handler should not fire, got %d calls", pongs)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsubscribe := Subscribe(bus, func(ping) { calls++ })
	Subscribe(bus, func(ping) {})

	if got := Count[ping](bus); got != 2 {
		t.Fatalf("expected 2 handlers, got %d", got)
	}

	unsubscribe()
	Publish(bus, ping{})

	if calls != 0 {
		t.Errorf("unsubscribed handler fired %d times", calls)
	}
	if got := Count[ping](bus); got != 1 {
		t.Errorf("expected 1 handler after unsubscribe, got %d", got)
	}
}

func TestPublishNilBus(t *testing.T) {
	var bus *Bus
	Publish(bus, ping{N: 3})
}

func TestHoldQueuesUntilOutermostRelease(t *testing.T) {
	bus := NewBus()

	var got []string
	Subscribe(bus, func(e ping) { got = append(got, "ping") })
	Subscribe(bus, func(e pong) { got = append(got, e.S) })

	bus.Hold()
	bus.Hold()
	Publish(bus, ping{})
	Publish(bus, pong{S: "a"})

	bus.Release()
	if len(got) != 0 {
		t.Fatalf("events delivered under an outer hold: %v", got)
	}
	if !bus.Held() {
		t.Fatal("bus should still be held")
	}

	bus.Release()
	if len(got) != 2 || got[0] != "ping" || got[1] != "a" {
		t.Errorf("unexpected delivery order: %v", got)
	}

	Publish(bus, pong{S: "b"})
	if len(got) != 3 {
		t.Errorf("publish after release should deliver immediately, got %v", got)
	}
}

func TestReleaseWithoutHoldIsNoop(t *testing.T) {
	bus := NewBus()
	bus.Release()
	if bus.Held() {
		t.Error("unbalanced release left the bus held")
	}

	var nilBus *Bus
	nilBus.Hold()
	nilBus.Release()
}
