package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one simulation pass (a preview or a skip).
const (
	PhaseSnapshot     = "snapshot"
	PhaseDeath        = "death"
	PhaseReproduction = "reproduction"
	PhaseSpots        = "spots"
	PhaseTraits       = "traits"
	PhaseRestore      = "restore"
)

var phaseOrder = []string{
	PhaseSnapshot, PhaseDeath, PhaseReproduction, PhaseSpots, PhaseTraits, PhaseRestore,
}

// PerfSample holds timing data for a single pass.
type PerfSample struct {
	PassDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks pass timings over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	passStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a collector averaging over the last windowSize passes.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 30
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartPass begins timing a new pass.
func (p *PerfCollector) StartPass() {
	if p == nil {
		return
	}
	p.passStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and begins timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	if p == nil {
		return
	}
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndPass finishes timing the current pass and records the sample.
func (p *PerfCollector) EndPass() {
	if p == nil {
		return
	}
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		PassDuration: now.Sub(p.passStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.lastPhase = ""
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Samples int

	AvgPassDuration time.Duration
	MinPassDuration time.Duration
	MaxPassDuration time.Duration

	// Average phase durations and their share of the average pass.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p == nil || p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minPass, maxPass time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.PassDuration

		if i == 0 || s.PassDuration < minPass {
			minPass = s.PassDuration
		}
		if s.PassDuration > maxPass {
			maxPass = s.PassDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	return PerfStats{
		Samples:         p.sampleCount,
		AvgPassDuration: avg,
		MinPassDuration: minPass,
		MaxPassDuration: maxPass,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"samples", s.Samples,
		"avg_pass_us", s.AvgPassDuration.Microseconds(),
		"min_pass_us", s.MinPassDuration.Microseconds(),
		"max_pass_us", s.MaxPassDuration.Microseconds(),
	}

	for _, phase := range phaseOrder {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("samples", s.Samples),
		slog.Int64("avg_pass_us", s.AvgPassDuration.Microseconds()),
		slog.Int64("min_pass_us", s.MinPassDuration.Microseconds()),
		slog.Int64("max_pass_us", s.MaxPassDuration.Microseconds()),
	}
	for _, phase := range phaseOrder {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	RunID           string  `csv:"run_id"`
	Day             int     `csv:"day"`
	Samples         int     `csv:"samples"`
	AvgPassUS       int64   `csv:"avg_pass_us"`
	MinPassUS       int64   `csv:"min_pass_us"`
	MaxPassUS       int64   `csv:"max_pass_us"`
	SnapshotPct     float64 `csv:"snapshot_pct"`
	DeathPct        float64 `csv:"death_pct"`
	ReproductionPct float64 `csv:"reproduction_pct"`
	SpotsPct        float64 `csv:"spots_pct"`
	TraitsPct       float64 `csv:"traits_pct"`
	RestorePct      float64 `csv:"restore_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(runID string, day int) PerfStatsCSV {
	return PerfStatsCSV{
		RunID:           runID,
		Day:             day,
		Samples:         s.Samples,
		AvgPassUS:       s.AvgPassDuration.Microseconds(),
		MinPassUS:       s.MinPassDuration.Microseconds(),
		MaxPassUS:       s.MaxPassDuration.Microseconds(),
		SnapshotPct:     s.PhasePct[PhaseSnapshot],
		DeathPct:        s.PhasePct[PhaseDeath],
		ReproductionPct: s.PhasePct[PhaseReproduction],
		SpotsPct:        s.PhasePct[PhaseSpots],
		TraitsPct:       s.PhasePct[PhaseTraits],
		RestorePct:      s.PhasePct[PhaseRestore],
	}
}
