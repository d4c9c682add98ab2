package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartPass()
		pc.StartPhase(PhaseDeath)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseTraits)
		time.Sleep(200 * time.Microsecond)
		pc.EndPass()
	}

	stats := pc.Stats()

	if stats.Samples != 5 {
		t.Errorf("expected 5 samples, got %d", stats.Samples)
	}
	if stats.AvgPassDuration <= 0 {
		t.Error("expected positive average pass duration")
	}
	if stats.MinPassDuration > stats.MaxPassDuration {
		t.Errorf("min %v > max %v", stats.MinPassDuration, stats.MaxPassDuration)
	}
	if _, ok := stats.PhaseAvg[PhaseDeath]; !ok {
		t.Error("expected death phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhaseTraits]; !ok {
		t.Error("expected traits phase to be tracked")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartPass()
		pc.StartPhase(PhaseSpots)
		time.Sleep(10 * time.Microsecond)
		pc.EndPass()
	}

	stats := pc.Stats()
	if stats.Samples != 5 {
		t.Errorf("expected window capped at 5 samples, got %d", stats.Samples)
	}
	if stats.AvgPassDuration <= 0 {
		t.Error("expected positive average pass duration after window filled")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartPass()
		pc.StartPhase("fast")
		pc.StartPhase("slow")
		time.Sleep(2 * time.Millisecond)
		pc.EndPass()
	}

	stats := pc.Stats()
	if stats.PhasePct["slow"] <= stats.PhasePct["fast"] {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", stats.PhasePct["slow"], stats.PhasePct["fast"])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	for _, pc := range []*PerfCollector{NewPerfCollector(10), nil} {
		stats := pc.Stats()
		if stats.AvgPassDuration != 0 {
			t.Error("expected zero avg pass duration for empty collector")
		}
		if stats.PhaseAvg == nil || stats.PhasePct == nil {
			t.Error("expected non-nil phase maps")
		}
	}

	// A nil collector is a valid disabled collector.
	var pc *PerfCollector
	pc.StartPass()
	pc.StartPhase(PhaseDeath)
	pc.EndPass()
}

func TestPerfStats_ToCSV(t *testing.T) {
	s := PerfStats{
		Samples:         3,
		AvgPassDuration: 1500 * time.Microsecond,
		PhasePct:        map[string]float64{PhaseDeath: 25, PhaseTraits: 75},
	}
	row := s.ToCSV("run", 4)
	if row.RunID != "run" || row.Day != 4 || row.Samples != 3 {
		t.Errorf("unexpected identity columns: %+v", row)
	}
	if row.AvgPassUS != 1500 || row.DeathPct != 25 || row.TraitsPct != 75 || row.SpotsPct != 0 {
		t.Errorf("unexpected timing columns: %+v", row)
	}
}
