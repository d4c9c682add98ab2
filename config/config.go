// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rascar-capac/ludum-dare-56/ranges"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// MaxTraits bounds the number of trait types; attribute sets are stored as bitmasks.
const MaxTraits = 64

// Death selection policies.
const (
	DeathSelectionRoster = "roster" // earliest spawned first
	DeathSelectionRandom = "random"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig  `yaml:"simulation"`
	Status     StatusConfig      `yaml:"status"`
	Parameters []ParameterConfig `yaml:"parameters"`
	Traits     []TraitConfig     `yaml:"traits"`
	Population PopulationConfig  `yaml:"population"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds preview/commit bookkeeping parameters.
type SimulationConfig struct {
	AttemptLimit int             `yaml:"attempt_limit"` // Previews allowed before a commit is forced
	TickCount    ranges.IntRange `yaml:"tick_count"`    // Legal tick counts per preview (both ends inclusive)
	StartTick    int             `yaml:"start_tick"`    // Tick counter value at day one
}

// StatusConfig holds the two ordered thresholds that tier a trait value.
type StatusConfig struct {
	Discovered float64 `yaml:"discovered"` // Value at which a trait counts as possessed
	Great      float64 `yaml:"great"`
}

// ParameterConfig defines a player-controlled input.
type ParameterConfig struct {
	Name    string            `yaml:"name"`
	Range   ranges.FloatRange `yaml:"range"`
	Initial float64           `yaml:"initial"`
}

// TraitConfig defines a trait type and how it evolves.
type TraitConfig struct {
	Name                 string                 `yaml:"name"`
	Hidden               bool                   `yaml:"hidden"` // Never shown as Unknown in the UI
	Initial              float64                `yaml:"initial"`
	InfluenceLossPerTick float64                `yaml:"influence_loss_per_tick"`
	Influences           []InfluenceGroupConfig `yaml:"influences"`
}

// InfluenceGroupConfig is a conjunction of conditions contributing a per-tick delta.
type InfluenceGroupConfig struct {
	InfluencePerTick float64           `yaml:"influence_per_tick"`
	Conditions       []ConditionConfig `yaml:"conditions"`
}

// ConditionConfig references exactly one parameter or trait.
type ConditionConfig struct {
	Parameter  string            `yaml:"parameter,omitempty"`
	Trait      string            `yaml:"trait,omitempty"`
	IsRange    bool              `yaml:"is_range"`
	Thresholds ranges.FloatRange `yaml:"thresholds"`
}

// PopulationConfig holds population management parameters.
type PopulationConfig struct {
	Initial                 int               `yaml:"initial"`
	Spots                   int               `yaml:"spots"`
	Destinations            int               `yaml:"destinations"` // Capacity is destinations - 1
	ReassignDuration        ranges.FloatRange `yaml:"reassign_duration"`
	ReproductionTrait       string            `yaml:"reproduction_trait"`
	HurtTrait               string            `yaml:"hurt_trait"`
	GateRange               ranges.FloatRange `yaml:"gate_range"` // Trait value range remapped onto probabilities
	ReproductionProbability ranges.FloatRange `yaml:"reproduction_probability"`
	DeathRatio              ranges.FloatRange `yaml:"death_ratio"`
	DeathSelection          string            `yaml:"death_selection"`
	SpotChance              float64           `yaml:"spot_chance"` // Chance a spawn prefers a spot when both kinds are free
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	CrashDropPercent float64 `yaml:"crash_drop_percent"` // Bookmark when a day loses this share of the population
	BoomMinBirths    int     `yaml:"boom_min_births"`
	HistorySize      int     `yaml:"history_size"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	TraitIndex     map[string]int // name -> index into Traits
	ParameterIndex map[string]int // name -> index into Parameters
	Capacity       int            // Population.Destinations - 1
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults. Panics if they do not load, which
// only happens when defaults.yaml itself is broken.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Prepare(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Prepare validates the configuration and computes derived values.
// Call it after building or editing a Config by hand.
func (c *Config) Prepare() error {
	c.computeDerived()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.TraitIndex = make(map[string]int, len(c.Traits))
	for i, tr := range c.Traits {
		c.Derived.TraitIndex[tr.Name] = i
	}

	c.Derived.ParameterIndex = make(map[string]int, len(c.Parameters))
	for i, p := range c.Parameters {
		c.Derived.ParameterIndex[p.Name] = i
	}

	c.Derived.Capacity = max(c.Population.Destinations-1, 0)

	if c.Population.DeathSelection == "" {
		c.Population.DeathSelection = DeathSelectionRoster
	}
}

// Validate reports every configuration error found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Simulation.AttemptLimit < 1 {
		errs = append(errs, fmt.Errorf("simulation.attempt_limit must be >= 1, got %d", c.Simulation.AttemptLimit))
	}
	if c.Simulation.TickCount.Min < 1 || c.Simulation.TickCount.Max < c.Simulation.TickCount.Min {
		errs = append(errs, fmt.Errorf("simulation.tick_count must satisfy 1 <= min <= max, got %+v", c.Simulation.TickCount))
	}

	if c.Status.Discovered <= 0 || c.Status.Great < c.Status.Discovered || c.Status.Great > 1 {
		errs = append(errs, fmt.Errorf("status thresholds must satisfy 0 < discovered <= great <= 1, got %+v", c.Status))
	}

	if len(c.Parameters) == 0 {
		errs = append(errs, errors.New("at least one parameter is required"))
	}
	if len(c.Derived.ParameterIndex) != len(c.Parameters) {
		errs = append(errs, errors.New("parameter names must be unique"))
	}
	for _, p := range c.Parameters {
		if p.Name == "" {
			errs = append(errs, errors.New("parameter with empty name"))
		}
		if p.Range.Max < p.Range.Min {
			errs = append(errs, fmt.Errorf("parameter %q: range max below min", p.Name))
		}
	}

	if len(c.Traits) == 0 || len(c.Traits) > MaxTraits {
		errs = append(errs, fmt.Errorf("trait count must be in [1, %d], got %d", MaxTraits, len(c.Traits)))
	}
	if len(c.Derived.TraitIndex) != len(c.Traits) {
		errs = append(errs, errors.New("trait names must be unique"))
	}
	for _, tr := range c.Traits {
		if tr.Name == "" {
			errs = append(errs, errors.New("trait with empty name"))
		}
		if tr.Initial < 0 || tr.Initial > 1 {
			errs = append(errs, fmt.Errorf("trait %q: initial value %v outside [0,1]", tr.Name, tr.Initial))
		}
		if tr.InfluenceLossPerTick < 0 {
			errs = append(errs, fmt.Errorf("trait %q: influence_loss_per_tick must be >= 0", tr.Name))
		}
		for gi, group := range tr.Influences {
			for ci, cond := range group.Conditions {
				if err := c.validateCondition(cond); err != nil {
					errs = append(errs, fmt.Errorf("trait %q influence %d condition %d: %w", tr.Name, gi, ci, err))
				}
			}
		}
	}

	pop := c.Population
	if pop.Destinations < 1 {
		errs = append(errs, fmt.Errorf("population.destinations must be >= 1, got %d", pop.Destinations))
	}
	if pop.Spots < 0 {
		errs = append(errs, fmt.Errorf("population.spots must be >= 0, got %d", pop.Spots))
	}
	if pop.Initial < 0 || pop.Initial > c.Derived.Capacity {
		errs = append(errs, fmt.Errorf("population.initial must be in [0, %d], got %d", c.Derived.Capacity, pop.Initial))
	}
	if pop.ReassignDuration.Min < 0 || pop.ReassignDuration.Max < pop.ReassignDuration.Min {
		errs = append(errs, fmt.Errorf("population.reassign_duration invalid: %+v", pop.ReassignDuration))
	}
	if _, ok := c.Derived.TraitIndex[pop.ReproductionTrait]; !ok {
		errs = append(errs, fmt.Errorf("population.reproduction_trait %q is not a configured trait", pop.ReproductionTrait))
	}
	if _, ok := c.Derived.TraitIndex[pop.HurtTrait]; !ok {
		errs = append(errs, fmt.Errorf("population.hurt_trait %q is not a configured trait", pop.HurtTrait))
	}
	if pop.GateRange.Max <= pop.GateRange.Min {
		errs = append(errs, fmt.Errorf("population.gate_range must have max > min, got %+v", pop.GateRange))
	}
	if pop.DeathSelection != DeathSelectionRoster && pop.DeathSelection != DeathSelectionRandom {
		errs = append(errs, fmt.Errorf("population.death_selection must be %q or %q, got %q",
			DeathSelectionRoster, DeathSelectionRandom, pop.DeathSelection))
	}
	if pop.SpotChance < 0 || pop.SpotChance > 1 {
		errs = append(errs, fmt.Errorf("population.spot_chance must be in [0,1], got %v", pop.SpotChance))
	}

	return errors.Join(errs...)
}

func (c *Config) validateCondition(cond ConditionConfig) error {
	switch {
	case cond.Parameter != "" && cond.Trait != "":
		return errors.New("condition references both a parameter and a trait")
	case cond.Parameter != "":
		if _, ok := c.Derived.ParameterIndex[cond.Parameter]; !ok {
			return fmt.Errorf("unknown parameter %q", cond.Parameter)
		}
	case cond.Trait != "":
		if _, ok := c.Derived.TraitIndex[cond.Trait]; !ok {
			return fmt.Errorf("unknown trait %q", cond.Trait)
		}
	default:
		return errors.New("condition references neither a parameter nor a trait")
	}
	if cond.Thresholds.Max < cond.Thresholds.Min {
		return fmt.Errorf("thresholds max below min: %+v", cond.Thresholds)
	}
	return nil
}

// InitialParameters returns the configured starting value of every parameter, by name.
func (c *Config) InitialParameters() map[string]float64 {
	out := make(map[string]float64, len(c.Parameters))
	for _, p := range c.Parameters {
		out[p.Name] = p.Range.Clamp(p.Initial)
	}
	return out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
