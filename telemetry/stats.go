package telemetry

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DayRecord summarizes one committed day.
type DayRecord struct {
	RunID string `csv:"run_id"`
	Day   int    `csv:"day"`
	Tick  int    `csv:"tick"`

	TickCount  int `csv:"tick_count"`
	Population int `csv:"population"`
	Dead       int `csv:"dead"`

	// Events folded in from the committed pass
	Births      int `csv:"births"`
	Deaths      int `csv:"deaths"`
	Extinctions int `csv:"extinctions"`

	// Attempts spent before committing
	Previews int `csv:"previews"`
	Discards int `csv:"discards"`

	// Trait distribution over non-hidden traits
	TraitMean   float64 `csv:"trait_mean"`
	TraitStd    float64 `csv:"trait_std"`
	GreatTraits int     `csv:"great_traits"`

	Parameters string `csv:"parameters"`
	Traits     string `csv:"traits"`

	// Traits that reached Great during the day
	ReachedGreat []string `csv:"-"`
}

// PreviewRecord describes one preview attempt.
type PreviewRecord struct {
	RunID      string `csv:"run_id"`
	Day        int    `csv:"day"`
	Attempt    int    `csv:"attempt"`
	TickCount  int    `csv:"tick_count"`
	Before     int    `csv:"population_before"`
	After      int    `csv:"population_after"`
	Births     int    `csv:"births"`
	Deaths     int    `csv:"deaths"`
	Extinct    bool   `csv:"extinct"`
	Parameters string `csv:"parameters"`
}

// FormatValues renders a name->value map as "a=0.50;b=1.00" in name order.
func FormatValues(values map[string]float64) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, "%s=%.2f", name, values[name])
	}
	return sb.String()
}

// TraitStats returns the mean and standard deviation of values.
// Fewer than two values give a zero deviation.
func TraitStats(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// Summary aggregates a run of committed days.
type Summary struct {
	Days           int
	FinalTick      int
	TotalBirths    int
	TotalDeaths    int
	Extinctions    int
	TotalPreviews  int
	MeanPopulation float64
	StdPopulation  float64
	MedPopulation  float64
	MinPopulation  float64
	MaxPopulation  float64
}

// Summarize computes a Summary over days.
func Summarize(days []DayRecord) Summary {
	s := Summary{Days: len(days)}
	if len(days) == 0 {
		return s
	}

	pop := make([]float64, len(days))
	for i, d := range days {
		pop[i] = float64(d.Population)
		s.TotalBirths += d.Births
		s.TotalDeaths += d.Deaths
		s.Extinctions += d.Extinctions
		s.TotalPreviews += d.Previews
	}
	s.FinalTick = days[len(days)-1].Tick

	s.MeanPopulation, s.StdPopulation = TraitStats(pop)
	s.MinPopulation = floats.Min(pop)
	s.MaxPopulation = floats.Max(pop)

	sorted := slices.Clone(pop)
	sort.Float64s(sorted)
	s.MedPopulation = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (d DayRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("day", d.Day),
		slog.Int("tick", d.Tick),
		slog.Int("tick_count", d.TickCount),
		slog.Int("population", d.Population),
		slog.Int("dead", d.Dead),
		slog.Int("births", d.Births),
		slog.Int("deaths", d.Deaths),
		slog.Int("previews", d.Previews),
		slog.Float64("trait_mean", d.TraitMean),
		slog.Int("great_traits", d.GreatTraits),
	)
}

// LogStats logs the day record using slog.
func (d DayRecord) LogStats() {
	slog.Info("day",
		"day", d.Day,
		"tick", d.Tick,
		"tick_count", d.TickCount,
		"population", d.Population,
		"dead", d.Dead,
		"births", d.Births,
		"deaths", d.Deaths,
		"extinctions", d.Extinctions,
		"previews", d.Previews,
		"discards", d.Discards,
		"trait_mean", d.TraitMean,
		"trait_std", d.TraitStd,
		"great_traits", d.GreatTraits,
		"parameters", d.Parameters,
	)
}

// LogStats logs the run summary using slog.
func (s Summary) LogStats() {
	slog.Info("summary",
		"days", s.Days,
		"final_tick", s.FinalTick,
		"births", s.TotalBirths,
		"deaths", s.TotalDeaths,
		"extinctions", s.Extinctions,
		"previews", s.TotalPreviews,
		"population_mean", s.MeanPopulation,
		"population_std", s.StdPopulation,
		"population_median", s.MedPopulation,
		"population_min", s.MinPopulation,
		"population_max", s.MaxPopulation,
	)
}
